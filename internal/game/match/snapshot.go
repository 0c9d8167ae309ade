package match

import (
	"go.uber.org/zap"

	"github.com/wfunc/gem-cascade/internal/errors"
)

// Snapshot 存档：颜色矩阵（[row][col]）加分数和等级
//
// 只保存颜色，不保存宝石种类，读档后所有宝石都是普通宝石。
type Snapshot struct {
	Board [][]int `json:"board"`
	Score int64   `json:"score"`
	Level int     `json:"level"`
}

// SnapshotFromGrid 由棋盘生成存档
func SnapshotFromGrid(grid *Grid, score int64, level int) Snapshot {
	return Snapshot{Board: grid.ColorMatrix(), Score: score, Level: level}
}

// Validate 校验存档能否装入指定尺寸和颜色数的棋盘
func (s Snapshot) Validate(width, height, colors int) error {
	if s.Board == nil {
		return errors.New(errors.ErrSnapshotMalformed, "缺少棋盘")
	}
	if len(s.Board) != height {
		return errors.Newf(errors.ErrSnapshotMalformed, "行数 %d, 期望 %d", len(s.Board), height)
	}
	for row, line := range s.Board {
		if len(line) != width {
			return errors.Newf(errors.ErrSnapshotMalformed, "第 %d 行列数 %d, 期望 %d", row, len(line), width)
		}
		for col, c := range line {
			if c < 0 || c >= colors {
				return errors.Newf(errors.ErrSnapshotMalformed, "(%d,%d) 颜色 %d 超出范围", col, row, c)
			}
		}
	}
	if s.Score < 0 || s.Level < 0 {
		return errors.New(errors.ErrSnapshotMalformed, "分数或等级为负")
	}
	return nil
}

// Snapshot 当前棋盘的存档
func (e *CascadeEngine) Snapshot(score int64, level int) Snapshot {
	return SnapshotFromGrid(e.grid, score, level)
}

// Restore 读档
//
// 存档不合法时不报错，改为生成新的随机棋盘，返回 false 和校验错误。
func (e *CascadeEngine) Restore(s Snapshot) (bool, error) {
	if err := s.Validate(e.config.Width, e.config.Height, e.config.Colors); err != nil {
		e.logger.Warn("存档不合法，使用随机棋盘", zap.Error(err))
		e.Reset()
		return false, err
	}
	e.Load(GridFromColors(s.Board))
	return true, nil
}
