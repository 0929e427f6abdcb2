package chat

import (
	"encoding/json"

	"PairChat/tools/errs"
)

// Frame 进出站统一使用 {event, data} 的 JSON 帧，
// 事件名与前端 socket 契约一一对应。
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func ParseFrame(raw []byte) (*Frame, error) {
	f := &Frame{}
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, errs.Wrap(err, "unmarshal frame failed")
	}
	if f.Event == "" {
		return nil, errs.New("frame missing event")
	}
	return f, nil
}

// BuildFrame 组包；payload 为 nil 时省略 data。
func BuildFrame(event string, payload any) ([]byte, error) {
	f := Frame{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, errs.WrapMsg(err, "marshal frame data failed", "event", event)
		}
		f.Data = data
	}
	return json.Marshal(f)
}

// Bind 把 data 解到目标结构。
func (f *Frame) Bind(v any) error {
	if len(f.Data) == 0 {
		return errs.New("frame has no data")
	}
	if err := json.Unmarshal(f.Data, v); err != nil {
		return errs.WrapMsg(err, "unmarshal frame data failed", "event", f.Event)
	}
	return nil
}
