package game

import (
	"github.com/wfunc/gem-cascade/internal/game/match"
)

// ScoreLedger 计分接口，引擎只发事件，不保存分数
type ScoreLedger interface {
	Record(event match.ScoreEvent)
}

// ScoreRules 计分规则
type ScoreRules struct {
	Plain     int64 `json:"plain"`
	Blast     int64 `json:"blast"`
	Beam      int64 `json:"beam"`
	Rainbow   int64 `json:"rainbow"`
	PerTile   int64 `json:"per_tile"`
	LevelStep int64 `json:"level_step"`
}

// DefaultScoreRules 默认计分规则
func DefaultScoreRules() ScoreRules {
	return ScoreRules{
		Plain:     50,
		Blast:     100,
		Beam:      150,
		Rainbow:   250,
		PerTile:   10,
		LevelStep: 1000,
	}
}

// Points 单个事件的得分
func (r ScoreRules) Points(event match.ScoreEvent) int64 {
	var base int64
	switch event.Type {
	case match.CombinationBlast:
		base = r.Blast
	case match.CombinationBeam:
		base = r.Beam
	case match.CombinationRainbow:
		base = r.Rainbow
	default:
		base = r.Plain
	}
	return base + r.PerTile*int64(event.TileCount)
}

// Ledger 默认计分板
//
// 不是并发安全的，由持有它的会话加锁。
type Ledger struct {
	rules ScoreRules
	score int64
	level int
	count int
}

// NewLedger 创建计分板
func NewLedger(rules ScoreRules) *Ledger {
	return &Ledger{rules: rules, level: 1}
}

// Record 记录计分事件
func (l *Ledger) Record(event match.ScoreEvent) {
	l.score += l.rules.Points(event)
	l.count++
	if l.rules.LevelStep > 0 && l.score >= l.rules.LevelStep {
		l.level = int(l.score/l.rules.LevelStep) + 1
	}
}

// RecordAll 批量记录，返回本批得分
func (l *Ledger) RecordAll(events []match.ScoreEvent) int64 {
	before := l.score
	for _, ev := range events {
		l.Record(ev)
	}
	return l.score - before
}

// Score 当前分数
func (l *Ledger) Score() int64 {
	return l.score
}

// Level 当前等级
func (l *Ledger) Level() int {
	return l.level
}

// Events 已记录的事件数
func (l *Ledger) Events() int {
	return l.count
}

// Restore 读档时恢复分数和等级
func (l *Ledger) Restore(score int64, level int) {
	l.score = score
	if level < 1 {
		level = 1
	}
	l.level = level
	l.count = 0
}

// Reset 清零
func (l *Ledger) Reset() {
	l.Restore(0, 1)
}
