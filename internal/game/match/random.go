package match

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand"
	"sync"
)

// RandomGenerator 随机数生成器接口
type RandomGenerator interface {
	// Next 生成下一个随机数 [0,1)
	Next() float64

	// NextInt 生成 [min,max) 范围内的随机整数
	NextInt(min, max int) int

	// Seed 设置种子
	Seed(seed int64)
}

// CryptoRandomGenerator 加密安全的随机数生成器
type CryptoRandomGenerator struct{}

// NewCryptoRandomGenerator 创建加密随机数生成器
func NewCryptoRandomGenerator() *CryptoRandomGenerator {
	return &CryptoRandomGenerator{}
}

// Next 生成下一个随机数 (0-1)
func (g *CryptoRandomGenerator) Next() float64 {
	max := big.NewInt(1000000)
	n, _ := rand.Int(rand.Reader, max)
	return float64(n.Int64()) / 1000000.0
}

// NextInt 生成指定范围内的随机整数
func (g *CryptoRandomGenerator) NextInt(min, max int) int {
	if min >= max {
		return min
	}
	n, _ := rand.Int(rand.Reader, big.NewInt(int64(max-min)))
	return min + int(n.Int64())
}

// Seed 加密随机数不需要种子
func (g *CryptoRandomGenerator) Seed(int64) {}

// SeededRandomGenerator 可复现的随机数生成器，用于测试和回放
type SeededRandomGenerator struct {
	mu  sync.Mutex
	rnd *mrand.Rand
}

// NewSeededRandomGenerator 创建带种子的随机数生成器
func NewSeededRandomGenerator(seed int64) *SeededRandomGenerator {
	return &SeededRandomGenerator{rnd: mrand.New(mrand.NewSource(seed))}
}

// Next 生成下一个随机数
func (g *SeededRandomGenerator) Next() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rnd.Float64()
}

// NextInt 生成指定范围内的随机整数
func (g *SeededRandomGenerator) NextInt(min, max int) int {
	if min >= max {
		return min
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return min + g.rnd.Intn(max-min)
}

// Seed 重新设置种子
func (g *SeededRandomGenerator) Seed(seed int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rnd = mrand.New(mrand.NewSource(seed))
}
