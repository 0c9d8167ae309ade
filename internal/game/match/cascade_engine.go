package match

import (
	"go.uber.org/zap"

	"github.com/wfunc/gem-cascade/internal/errors"
)

// EngineConfig 引擎配置
type EngineConfig struct {
	Width     int `json:"width" mapstructure:"width"`           // 棋盘列数（默认8）
	Height    int `json:"height" mapstructure:"height"`         // 棋盘行数（默认8）
	Colors    int `json:"colors" mapstructure:"colors"`         // 颜色数量（默认7）
	MaxPasses int `json:"max_passes" mapstructure:"max_passes"` // 单次交换最大消除轮数（默认50）
}

// DefaultEngineConfig 默认引擎配置
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Width:     8,
		Height:    8,
		Colors:    ColorCount,
		MaxPasses: 50,
	}
}

// normalize 补全非法配置
func (c EngineConfig) normalize() EngineConfig {
	def := DefaultEngineConfig()
	if c.Width <= 0 {
		c.Width = def.Width
	}
	if c.Height <= 0 {
		c.Height = def.Height
	}
	if c.Colors < 3 || c.Colors > ColorCount {
		c.Colors = def.Colors
	}
	if c.MaxPasses <= 0 {
		c.MaxPasses = def.MaxPasses
	}
	return c
}

// CascadeEngine 消除引擎：交换校验、消除、下落、补充，直到棋盘稳定
//
// 引擎独占棋盘，不支持并发调用，由上层会话加锁。
type CascadeEngine struct {
	config     EngineConfig
	grid       *Grid
	finder     *ClusterFinder
	classifier *ShapeClassifier
	resolver   *EffectResolver
	generator  *BoardGenerator
	state      *stateMachine
	logger     *zap.Logger
}

// NewCascadeEngine 创建引擎并生成随机初始棋盘
func NewCascadeEngine(config EngineConfig, rng RandomGenerator, logger *zap.Logger) *CascadeEngine {
	config = config.normalize()
	e := newEngine(config, rng, logger)
	e.setGrid(e.generator.Generate(config.Width, config.Height))
	return e
}

// NewCascadeEngineWithGrid 使用指定棋盘创建引擎，棋盘尺寸覆盖配置，空棋盘返回错误
func NewCascadeEngineWithGrid(config EngineConfig, grid *Grid, rng RandomGenerator, logger *zap.Logger) (*CascadeEngine, error) {
	if grid == nil || grid.Width() == 0 || grid.Height() == 0 {
		return nil, errors.New(errors.ErrInvalidParam, "棋盘不能为空")
	}
	config = config.normalize()
	config.Width = grid.Width()
	config.Height = grid.Height()
	e := newEngine(config, rng, logger)
	e.setGrid(grid)
	return e, nil
}

func newEngine(config EngineConfig, rng RandomGenerator, logger *zap.Logger) *CascadeEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CascadeEngine{
		config:     config,
		classifier: NewShapeClassifier(),
		generator:  NewBoardGenerator(config.Colors, rng),
		state:      newStateMachine(logger),
		logger:     logger,
	}
}

// setGrid 替换棋盘，查找器和解析器跟随新棋盘
func (e *CascadeEngine) setGrid(grid *Grid) {
	e.grid = grid
	e.finder = NewClusterFinder(grid)
	e.resolver = NewEffectResolver(grid)
}

// Config 引擎配置
func (e *CascadeEngine) Config() EngineConfig {
	return e.config
}

// Grid 返回棋盘副本
func (e *CascadeEngine) Grid() *Grid {
	return e.grid.Clone()
}

// State 当前状态
func (e *CascadeEngine) State() EngineState {
	return e.state.current
}

// Reset 新开一局：替换为随机棋盘
func (e *CascadeEngine) Reset() {
	e.Load(e.generator.Generate(e.config.Width, e.config.Height))
}

// Load 替换棋盘（读档），状态回到待机
func (e *CascadeEngine) Load(grid *Grid) {
	e.setGrid(grid.Clone())
	e.state.reset()
	e.logger.Info("棋盘已替换",
		zap.Int("width", grid.Width()),
		zap.Int("height", grid.Height()))
}

// Swap 处理一次交换请求
//
// 被拒绝的交换不改变棋盘，以结果返回而非错误。已提交的交换会一直消除到棋盘稳定
// 或达到最大轮数。
func (e *CascadeEngine) Swap(a, b Position) (*SwapResult, error) {
	if err := e.state.trigger(EventSwap); err != nil {
		return nil, errors.Wrap(err, errors.ErrEngineBusy)
	}

	result := &SwapResult{From: a, To: b}

	if reason := e.validate(a, b); reason != RejectNone {
		return e.reject(result, reason), nil
	}

	ta, _ := e.grid.At(a)
	tb, _ := e.grid.At(b)
	rainbow := ta.Variant == VariantRainbow || tb.Variant == VariantRainbow

	before := e.grid.Clone()
	e.grid.Swap(a, b)

	if !rainbow && !e.producesCombination(a, b) {
		e.grid.Swap(a, b)
		return e.reject(result, RejectNoCombination), nil
	}

	if err := e.state.trigger(EventCommit); err != nil {
		return nil, errors.Wrap(err, errors.ErrEngineBusy)
	}
	result.Accepted = true

	// 交换后 a 处的宝石来自 b，被拖动的宝石落在 b
	swapped := []Position{b, a}
	var seeds []Position
	if rainbow {
		seeds = e.rainbowSeeds(a, b)
	}

	if err := e.resolve(result, swapped, seeds); err != nil {
		e.setGrid(before)
		e.state.reset()
		return nil, err
	}

	e.state.trigger(EventAcknowledge)
	return result, nil
}

// validate 交换的前置校验
func (e *CascadeEngine) validate(a, b Position) RejectReason {
	if !e.grid.InBounds(a.Col, a.Row) || !e.grid.InBounds(b.Col, b.Row) {
		return RejectOutOfBounds
	}
	if e.grid.IsEmpty(a.Col, a.Row) || e.grid.IsEmpty(b.Col, b.Row) {
		return RejectEmptyCell
	}
	if !a.IsAdjacent(b) {
		return RejectNotAdjacent
	}
	return RejectNone
}

func (e *CascadeEngine) reject(result *SwapResult, reason RejectReason) *SwapResult {
	result.Reason = reason
	result.Stable = true
	e.state.trigger(EventReject)
	e.state.trigger(EventAcknowledge)
	e.logger.Debug("交换被拒绝",
		zap.Stringer("from", result.From),
		zap.Stringer("to", result.To),
		zap.String("reason", string(reason)))
	return result
}

// producesCombination 交换两端是否至少有一端能组成组合
func (e *CascadeEngine) producesCombination(a, b Position) bool {
	return e.matchesAt(e.finder, a, b)
}

// rainbowSeeds 交换两端中的彩虹宝石
func (e *CascadeEngine) rainbowSeeds(a, b Position) []Position {
	var seeds []Position
	for _, p := range []Position{a, b} {
		if t, ok := e.grid.At(p); ok && t.Variant == VariantRainbow {
			seeds = append(seeds, p)
		}
	}
	return seeds
}

// resolve 消除循环
func (e *CascadeEngine) resolve(result *SwapResult, swapped, seeds []Position) error {
	if err := e.state.trigger(EventResolve); err != nil {
		return errors.Wrap(err, errors.ErrEngineBusy)
	}

	for pass := 1; ; pass++ {
		if pass > e.config.MaxPasses {
			if len(e.Scan()) > 0 {
				result.Capped = true
				e.logger.Warn("消除轮数达到上限，停止连锁",
					zap.Int("max_passes", e.config.MaxPasses))
			}
			break
		}

		step, ok := e.runPass(pass, swapped, seeds)
		if !ok {
			if pass == 1 {
				e.logger.Error("已提交的交换没有产生组合",
					zap.Stringer("from", result.From),
					zap.Stringer("to", result.To))
				return errors.Newf(errors.ErrInvariantViolation,
					"交换 %s-%s 已提交但首轮没有组合", result.From, result.To)
			}
			break
		}

		result.Steps = append(result.Steps, step)
		result.Events = append(result.Events, step.Events...)
		e.state.trigger(EventPass)

		// 交换位置和彩虹引爆只作用于首轮
		swapped, seeds = nil, nil
	}

	result.Stable = !result.Capped
	e.state.trigger(EventSettle)

	e.logger.Debug("消除完成",
		zap.Int("passes", result.Passes()),
		zap.Int("removed", result.RemovedCount()),
		zap.Bool("capped", result.Capped))
	return nil
}

// Scan 全盘扫描，返回本轮所有不重叠的组合
func (e *CascadeEngine) Scan() []Combination {
	return scan(e.finder, e.classifier)
}

func scan(finder *ClusterFinder, classifier *ShapeClassifier) []Combination {
	var combos []Combination
	for _, cluster := range finder.FindAll() {
		if comb, ok := classifier.Classify(cluster); ok {
			combos = append(combos, *comb)
		}
	}
	return combos
}

// runPass 执行一轮：扫描、结算效果、清除、生成、下落、补充。没有任何消除时返回 false
func (e *CascadeEngine) runPass(pass int, swapped, seeds []Position) (CascadeStep, bool) {
	step := CascadeStep{Pass: pass}
	detonated := NewPositionSet()
	deleted := NewPositionSet()
	var spawns []SpawnRequest

	for _, seed := range seeds {
		if detonated.Has(seed) {
			continue
		}
		rainbow, _ := e.grid.At(seed)
		trigger := e.partnerColor(seed, swapped)
		area := e.resolver.Detonate(rainbow, trigger, detonated)
		step.Events = append(step.Events, ScoreEvent{
			Type:      CombinationRainbow,
			TileCount: deleted.Merge(area),
			Special:   true,
		})
	}

	// 同一轮内每个格子只计分一次
	combos := e.Scan()
	for i := range combos {
		res := e.resolver.Resolve(&combos[i], detonated, swapped)
		res.Event.TileCount = deleted.Merge(res.Deleted)
		step.Events = append(step.Events, res.Event)
		if res.Spawn != nil {
			spawns = append(spawns, *res.Spawn)
		}
	}
	step.Combinations = combos

	if len(deleted) == 0 {
		return step, false
	}

	step.Removed = deleted.Sorted()
	for _, p := range step.Removed {
		e.grid.Clear(p.Col, p.Row)
	}

	for _, s := range spawns {
		if !e.grid.IsEmpty(s.Pos.Col, s.Pos.Row) {
			continue
		}
		token := NewToken(s.Pos.Col, s.Pos.Row, s.Color, s.Variant)
		e.grid.Set(s.Pos.Col, s.Pos.Row, token)
		step.Spawned = append(step.Spawned, token)
	}

	step.Falls = e.applyGravity()
	step.Refilled = e.refill()

	e.logger.Debug("消除轮完成",
		zap.Int("pass", pass),
		zap.Int("combinations", len(combos)),
		zap.Int("removed", len(step.Removed)),
		zap.Int("spawned", len(step.Spawned)))
	return step, true
}

// partnerColor 彩虹宝石交换对象的颜色
func (e *CascadeEngine) partnerColor(seed Position, swapped []Position) Color {
	for _, p := range swapped {
		if p == seed {
			continue
		}
		if t, ok := e.grid.At(p); ok {
			return t.Color
		}
	}
	t, _ := e.grid.At(seed)
	return t.Color
}

// applyGravity 逐列压实，宝石保持原有上下顺序
func (e *CascadeEngine) applyGravity() []Fall {
	var falls []Fall
	for col := 0; col < e.grid.Width(); col++ {
		write := e.grid.Height() - 1
		for row := e.grid.Height() - 1; row >= 0; row-- {
			token, ok := e.grid.Get(col, row)
			if !ok {
				continue
			}
			if row != write {
				e.grid.Set(col, write, token)
				e.grid.Clear(col, row)
				falls = append(falls, Fall{
					From:     Pos(col, row),
					To:       Pos(col, write),
					Distance: write - row,
				})
			}
			write--
		}
	}
	return falls
}

// refill 用随机普通宝石填满每列顶部的空格
func (e *CascadeEngine) refill() []Token {
	var refilled []Token
	for col := 0; col < e.grid.Width(); col++ {
		for row := 0; row < e.grid.Height(); row++ {
			if !e.grid.IsEmpty(col, row) {
				break
			}
			token := e.generator.RandomToken(col, row)
			e.grid.Set(col, row, token)
			refilled = append(refilled, token)
		}
	}
	return refilled
}
