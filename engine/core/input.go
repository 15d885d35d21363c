package core

import "sync"

type Button uint16

const (
	BUTTON_LEFT Button = iota
	BUTTON_RIGHT
	BUTTON_MIDDLE
	BUTTON_MAX_BUTTONS
)

type MouseState struct {
	X       uint16
	Y       uint16
	Buttons [BUTTON_MAX_BUTTONS]bool
}

// Input state holds current and previous pointer states so edges can be detected.
type InputState struct {
	mu            sync.RWMutex
	MouseCurrent  MouseState
	MousePrevious MouseState
}

var onceInput sync.Once
var inputState *InputState = nil

func InputInitialize() error {
	onceInput.Do(func() {
		inputState = &InputState{}
	})
	LogInfo("Input subsystem initialized.")
	return nil
}

func InputShutdown() error {
	if inputState == nil {
		return nil
	}
	inputState.mu.Lock()
	inputState.MouseCurrent = MouseState{}
	inputState.MousePrevious = MouseState{}
	inputState.mu.Unlock()
	return nil
}

// InputUpdate copies the current state into the previous one. Call once at the end of a frame.
func InputUpdate(deltaTime float64) error {
	if inputState == nil {
		return nil
	}
	inputState.mu.Lock()
	inputState.MousePrevious = inputState.MouseCurrent
	inputState.mu.Unlock()
	return nil
}

func InputIsButtonDown(button Button) bool {
	if inputState == nil || button >= BUTTON_MAX_BUTTONS {
		return false
	}
	inputState.mu.RLock()
	defer inputState.mu.RUnlock()
	return inputState.MouseCurrent.Buttons[button]
}

func InputWasButtonDown(button Button) bool {
	if inputState == nil || button >= BUTTON_MAX_BUTTONS {
		return false
	}
	inputState.mu.RLock()
	defer inputState.mu.RUnlock()
	return inputState.MousePrevious.Buttons[button]
}

// InputButtonPressedThisFrame reports a down edge: pressed now, released last frame.
func InputButtonPressedThisFrame(button Button) bool {
	return InputIsButtonDown(button) && !InputWasButtonDown(button)
}

func InputGetMousePosition() (int32, int32) {
	if inputState == nil {
		return 0, 0
	}
	inputState.mu.RLock()
	defer inputState.mu.RUnlock()
	return int32(inputState.MouseCurrent.X), int32(inputState.MouseCurrent.Y)
}

func InputProcessButton(button Button, pressed bool) error {
	if inputState == nil || button >= BUTTON_MAX_BUTTONS {
		return nil
	}
	inputState.mu.Lock()
	changed := inputState.MouseCurrent.Buttons[button] != pressed
	inputState.MouseCurrent.Buttons[button] = pressed
	inputState.mu.Unlock()

	// If the state changed, fire an event.
	if changed {
		code := EVENT_CODE_BUTTON_RELEASED
		if pressed {
			code = EVENT_CODE_BUTTON_PRESSED
		}
		ctx := EventContext{}
		ctx.Data.I32[0] = int32(button)
		EventFire(code, nil, ctx)
	}
	return nil
}

func InputProcessMouseMove(x uint16, y uint16) error {
	if inputState == nil {
		return nil
	}
	inputState.mu.Lock()
	inputState.MouseCurrent.X = x
	inputState.MouseCurrent.Y = y
	inputState.mu.Unlock()
	return nil
}
