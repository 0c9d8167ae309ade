package match

import (
	"fmt"

	"go.uber.org/zap"
)

// EngineState 引擎状态
type EngineState string

const (
	StateIdle           EngineState = "idle"            // 等待交换
	StateEvaluatingSwap EngineState = "evaluating_swap" // 校验交换
	StateRejected       EngineState = "rejected"        // 交换被拒绝
	StateCommitted      EngineState = "committed"       // 交换已提交
	StateResolving      EngineState = "resolving"       // 消除中
	StateStable         EngineState = "stable"          // 棋盘稳定
)

// 引擎事件
const (
	EventSwap        = "swap"
	EventReject      = "reject"
	EventCommit      = "commit"
	EventResolve     = "resolve"
	EventPass        = "pass"
	EventSettle      = "settle"
	EventAcknowledge = "ack"
)

// transition 状态转换定义
type transition struct {
	From  EngineState
	Event string
	To    EngineState
}

// engineTransitions 合法的状态转换
var engineTransitions = []transition{
	{From: StateIdle, Event: EventSwap, To: StateEvaluatingSwap},
	{From: StateEvaluatingSwap, Event: EventReject, To: StateRejected},
	{From: StateEvaluatingSwap, Event: EventCommit, To: StateCommitted},
	{From: StateRejected, Event: EventAcknowledge, To: StateIdle},
	{From: StateCommitted, Event: EventResolve, To: StateResolving},
	{From: StateResolving, Event: EventPass, To: StateResolving},
	{From: StateResolving, Event: EventSettle, To: StateStable},
	{From: StateStable, Event: EventAcknowledge, To: StateIdle},
}

// stateMachine 引擎内部状态机，单线程使用
type stateMachine struct {
	current     EngineState
	transitions map[string]EngineState
	logger      *zap.Logger
}

func newStateMachine(logger *zap.Logger) *stateMachine {
	sm := &stateMachine{
		current:     StateIdle,
		transitions: make(map[string]EngineState, len(engineTransitions)),
		logger:      logger,
	}
	for _, t := range engineTransitions {
		sm.transitions[transitionKey(t.From, t.Event)] = t.To
	}
	return sm
}

// transitionKey 生成转换键
func transitionKey(state EngineState, event string) string {
	return fmt.Sprintf("%s:%s", state, event)
}

// trigger 触发事件
func (sm *stateMachine) trigger(event string) error {
	to, ok := sm.transitions[transitionKey(sm.current, event)]
	if !ok {
		return fmt.Errorf("无效的状态转换: 状态=%s, 事件=%s", sm.current, event)
	}
	sm.logger.Debug("状态转换",
		zap.String("from", string(sm.current)),
		zap.String("to", string(to)),
		zap.String("event", event))
	sm.current = to
	return nil
}

// canTransition 检查是否可以转换
func (sm *stateMachine) canTransition(event string) bool {
	_, ok := sm.transitions[transitionKey(sm.current, event)]
	return ok
}

// reset 强制回到待机
func (sm *stateMachine) reset() {
	sm.current = StateIdle
}
