package core

import (
	"reflect"
	"sync"
)

type EventContext struct {
	Data struct {
		U64 [2]uint64
		F64 [2]float64
		I32 [4]int32
		C   [4]string
	}
	// Payload carries the typed value of the event, e.g. an impact result.
	Payload interface{}
}

// System internal event codes. Application should use codes beyond 255.
type SystemEventCode int

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = 0x01

	// Pointer button pressed.
	/* Context usage:
	 * i32 button = data.Data.I32[0];
	 */
	EVENT_CODE_BUTTON_PRESSED SystemEventCode = 0x04

	// Pointer button released.
	/* Context usage:
	 * i32 button = data.Data.I32[0];
	 */
	EVENT_CODE_BUTTON_RELEASED SystemEventCode = 0x05

	// An impact was scheduled on a deformable.
	/* Context usage:
	 * string deformable = data.Data.C[0];
	 * string impact id = data.Data.C[1];
	 */
	EVENT_CODE_IMPACT_STARTED SystemEventCode = 0x10

	// An impact committed or finished as a no-op.
	/* Context usage:
	 * string deformable = data.Data.C[0];
	 * string impact id = data.Data.C[1];
	 * string outcome = data.Data.C[2];
	 * payload = deform.ImpactResult
	 */
	EVENT_CODE_IMPACT_COMPLETED SystemEventCode = 0x11

	// An impact aborted on a structural error.
	/* Context usage:
	 * string deformable = data.Data.C[0];
	 * string impact id = data.Data.C[1];
	 * payload = error
	 */
	EVENT_CODE_IMPACT_FAILED SystemEventCode = 0x12

	// An impact was preempted before commit.
	/* Context usage:
	 * string deformable = data.Data.C[0];
	 * string impact id = data.Data.C[1];
	 */
	EVENT_CODE_IMPACT_CANCELLED SystemEventCode = 0x13

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

// This should be more than enough codes...
const MAX_MESSAGE_CODES = 16384

// Should return true if handled.
type FnOnEvent func(code SystemEventCode, sender interface{}, listenerInst interface{}, data EventContext) bool

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

type eventSystemState struct {
	mu sync.RWMutex
	// Lookup table for event codes.
	registered [MAX_MESSAGE_CODES][]*registeredEvent
}

var onceEvent sync.Once
var eventState *eventSystemState = nil

func EventSystemInitialize() bool {
	onceEvent.Do(func() {
		eventState = &eventSystemState{}
	})
	return true
}

func validCode(code SystemEventCode) bool {
	return code >= 0 && code < MAX_MESSAGE_CODES
}

/**
 * Register to listen for when events are sent with the provided code. Events with duplicate
 * listener/callback combos will not be registered again and will cause this to return false.
 */
func EventRegister(code SystemEventCode, listener interface{}, onEvent FnOnEvent) bool {
	EventSystemInitialize()
	if !validCode(code) || onEvent == nil {
		return false
	}
	eventState.mu.Lock()
	defer eventState.mu.Unlock()

	for _, e := range eventState.registered[code] {
		if e.listener == listener && sameCallback(e.callback, onEvent) {
			LogWarn("event code %d already has this listener registered", code)
			return false
		}
	}
	eventState.registered[code] = append(eventState.registered[code], &registeredEvent{
		listener: listener,
		callback: onEvent,
	})
	return true
}

/**
 * Unregister from listening for when events are sent with the provided code. If no matching
 * registration is found, this function returns false.
 */
func EventUnregister(code SystemEventCode, listener interface{}, onEvent FnOnEvent) bool {
	EventSystemInitialize()
	if !validCode(code) {
		return false
	}
	eventState.mu.Lock()
	defer eventState.mu.Unlock()

	events := eventState.registered[code]
	for i, e := range events {
		if e.listener == listener && sameCallback(e.callback, onEvent) {
			eventState.registered[code] = append(events[:i:i], events[i+1:]...)
			return true
		}
	}
	// Not found.
	return false
}

/**
 * Fires an event to listeners of the given code. If an event handler returns
 * true, the event is considered handled and is not passed on to any more listeners.
 */
func EventFire(code SystemEventCode, sender interface{}, context EventContext) bool {
	EventSystemInitialize()
	if !validCode(code) {
		return false
	}
	eventState.mu.RLock()
	events := append([]*registeredEvent(nil), eventState.registered[code]...)
	eventState.mu.RUnlock()

	for _, e := range events {
		if e.callback(code, sender, e.listener, context) {
			// Message has been handled, do not send to other listeners.
			return true
		}
	}
	return false
}

// funcs are not comparable, so registrations are matched on the code pointer.
func sameCallback(a, b FnOnEvent) bool {
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}
