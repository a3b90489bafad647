package stream

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Elib27/galaxy-simulation/internal/sim"
)

// Control message types accepted from clients.
const (
	MessageTypePause        = "pause"
	MessageTypeResume       = "resume"
	MessageTypeToggle       = "toggle"
	MessageTypeReset        = "reset"
	MessageTypeTimeStep     = "time_step"
	MessageTypeStars        = "stars"
	MessageTypeInitialSpeed = "initial_speed"
)

// Message types sent to clients as JSON text frames.
const (
	MessageTypeStatus = "status"
	MessageTypeError  = "error"
)

var ErrShortFrame = errors.New("stream: frame too short")

// ControlMessage is a client request.
type ControlMessage struct {
	Type  string  `json:"type"`
	Value float64 `json:"value,omitempty"`
}

func ParseControl(data []byte) (ControlMessage, error) {
	var msg ControlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("parsing control message: %w", err)
	}
	return msg, nil
}

// StatusMessage reports controller state after a connection or a control
// message.
type StatusMessage struct {
	Type         string  `json:"type"`
	State        string  `json:"state"`
	Step         int     `json:"step"`
	Time         float64 `json:"time"`
	Stars        int     `json:"stars"`
	InitialSpeed float64 `json:"initial_speed"`
	TimeStep     float64 `json:"time_step"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func newStatus(state sim.State, p sim.Params, f sim.Frame) StatusMessage {
	return StatusMessage{
		Type:         MessageTypeStatus,
		State:        state.String(),
		Step:         f.Step,
		Time:         f.Time,
		Stars:        len(f.Positions),
		InitialSpeed: p.InitialSpeed,
		TimeStep:     p.TimeStep,
	}
}

// frameHeader is the uint32 step prefix of a binary frame.
const frameHeader = 4

// AppendFrame encodes step and positions as little-endian uint32 step
// followed by float32 x,y,z triples.
func AppendFrame(dst []byte, step int, positions []mgl64.Vec3) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(step))
	for _, p := range positions {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(float32(p[0])))
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(float32(p[1])))
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(float32(p[2])))
	}
	return dst
}

// DecodeFrame is the inverse of AppendFrame.
func DecodeFrame(data []byte) (int, []float32, error) {
	if len(data) < frameHeader || (len(data)-frameHeader)%12 != 0 {
		return 0, nil, fmt.Errorf("%w: %d bytes", ErrShortFrame, len(data))
	}
	step := int(binary.LittleEndian.Uint32(data))
	body := data[frameHeader:]
	out := make([]float32, len(body)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(body[4*i:]))
	}
	return step, out, nil
}
