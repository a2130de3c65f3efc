package model

import (
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// ActionType 学习行为类型，整数编码属于存储契约
type ActionType int

const (
	ActionView     ActionType = 1 // 观看视频
	ActionExercise ActionType = 2 // 做练习
	ActionDiscuss  ActionType = 3 // 参与讨论
	ActionDownload ActionType = 4 // 下载资料
)

var actionTypeNames = map[ActionType]string{
	ActionView:     "view",
	ActionExercise: "exercise",
	ActionDiscuss:  "discuss",
	ActionDownload: "download",
}

func (a ActionType) Valid() bool {
	_, ok := actionTypeNames[a]
	return ok
}

func (a ActionType) String() string {
	if name, ok := actionTypeNames[a]; ok {
		return name
	}
	return "ActionType(" + strconv.Itoa(int(a)) + ")"
}

func ParseActionType(code int) (ActionType, error) {
	a := ActionType(code)
	if !a.Valid() {
		return 0, fmt.Errorf("unknown actionType code %d", code)
	}
	return a, nil
}

func (a *ActionType) UnmarshalJSON(data []byte) error {
	code, err := decodeCode(data, "actionType")
	if err != nil {
		return err
	}
	parsed, err := ParseActionType(code)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// DeviceType 设备类型
type DeviceType int

const (
	DevicePC     DeviceType = 1
	DeviceMobile DeviceType = 2
	DeviceTablet DeviceType = 3
)

var deviceTypeNames = map[DeviceType]string{
	DevicePC:     "pc",
	DeviceMobile: "mobile",
	DeviceTablet: "tablet",
}

func (d DeviceType) Valid() bool {
	_, ok := deviceTypeNames[d]
	return ok
}

func (d DeviceType) String() string {
	if name, ok := deviceTypeNames[d]; ok {
		return name
	}
	return "DeviceType(" + strconv.Itoa(int(d)) + ")"
}

func ParseDeviceType(code int) (DeviceType, error) {
	d := DeviceType(code)
	if !d.Valid() {
		return 0, fmt.Errorf("unknown deviceType code %d", code)
	}
	return d, nil
}

func (d *DeviceType) UnmarshalJSON(data []byte) error {
	code, err := decodeCode(data, "deviceType")
	if err != nil {
		return err
	}
	parsed, err := ParseDeviceType(code)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MessageType 聊天消息类型
type MessageType int

const (
	MessageNormal MessageType = 1 // 普通消息
	MessageSystem MessageType = 2 // 系统消息
)

func (m MessageType) Valid() bool {
	return m == MessageNormal || m == MessageSystem
}

func (m MessageType) String() string {
	switch m {
	case MessageNormal:
		return "normal"
	case MessageSystem:
		return "system"
	}
	return "MessageType(" + strconv.Itoa(int(m)) + ")"
}

func ParseMessageType(code int) (MessageType, error) {
	m := MessageType(code)
	if !m.Valid() {
		return 0, fmt.Errorf("unknown messageType code %d", code)
	}
	return m, nil
}

func (m *MessageType) UnmarshalJSON(data []byte) error {
	code, err := decodeCode(data, "messageType")
	if err != nil {
		return err
	}
	parsed, err := ParseMessageType(code)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// NoteType 笔记类型 TEXT:文本 IMAGE:图片 AUDIO:音频
type NoteType string

const (
	NoteText  NoteType = "TEXT"
	NoteImage NoteType = "IMAGE"
	NoteAudio NoteType = "AUDIO"
)

func (n NoteType) Valid() bool {
	switch n {
	case NoteText, NoteImage, NoteAudio:
		return true
	}
	return false
}

func (n *NoteType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("type: %w", err)
	}
	if !NoteType(s).Valid() {
		return fmt.Errorf("unknown note type %q", s)
	}
	*n = NoteType(s)
	return nil
}

func decodeCode(data []byte, field string) (int, error) {
	var code int
	if err := json.Unmarshal(data, &code); err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return code, nil
}
