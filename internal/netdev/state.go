package netdev

import "github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/pkg/errs"

// State 连接状态
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateSessionPreparing
	StateReady
	StateExecutingCommand
	StateEnteringConfig
	StateInConfig
	StateExitingConfig
	StateDisconnecting
)

var stateNames = map[State]string{
	StateDisconnected:     "disconnected",
	StateConnecting:       "connecting",
	StateSessionPreparing: "session_preparing",
	StateReady:            "ready",
	StateExecutingCommand: "executing_command",
	StateEnteringConfig:   "entering_config",
	StateInConfig:         "in_config",
	StateExitingConfig:    "exiting_config",
	StateDisconnecting:    "disconnecting",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

// 合法迁移表；任何状态都可因传输失败回到 Disconnected
var transitions = map[State][]State{
	StateDisconnected:     {StateConnecting},
	StateConnecting:       {StateSessionPreparing, StateDisconnected},
	StateSessionPreparing: {StateReady, StateDisconnected},
	StateReady:            {StateExecutingCommand, StateEnteringConfig, StateDisconnecting, StateDisconnected},
	StateExecutingCommand: {StateReady, StateDisconnected},
	StateEnteringConfig:   {StateInConfig, StateExitingConfig, StateReady, StateDisconnected},
	StateInConfig:         {StateExitingConfig, StateDisconnected},
	StateExitingConfig:    {StateReady, StateDisconnected},
	StateDisconnecting:    {StateDisconnected},
}

// CanTransition 是否允许从 from 迁移到 to
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func transitionError(from, to State) error {
	return errs.New(errs.KindInvalidState, "cannot go from %s to %s", from, to)
}
