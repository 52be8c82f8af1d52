// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package ds

import (
	"fmt"
	"strconv"
)

// Outbound method names (core -> host). These double as the callback names
// the host activates through setCallbackActive.
const (
	MethodOnNetworkEvent         = "onNetworkEvent"
	MethodOnLogEvent             = "onLogEvent"
	MethodOnAttachmentsForReport = "onAttachmentsForReport"
	MethodOnNewFeedbackMessages  = "onNewFeedbackMessages"
	MethodOnLifecycleEvent       = "onLifecycleEvent"
)

// Result statuses for a marshaled call
const (
	CallStatusSuccess        = "success"
	CallStatusError          = "error"
	CallStatusNotImplemented = "notimplemented"
)

type Rect struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

func MakeRectXYWH(x int, y int, width int, height int) Rect {
	return Rect{Left: x, Top: y, Right: x + width, Bottom: y + height}
}

func (r Rect) Width() int {
	return r.Right - r.Left
}

func (r Rect) Height() int {
	return r.Bottom - r.Top
}

// Union returns the bounding rectangle of r and other
func (r Rect) Union(other Rect) Rect {
	return Rect{
		Left:   min(r.Left, other.Left),
		Top:    min(r.Top, other.Top),
		Right:  max(r.Right, other.Right),
		Bottom: max(r.Bottom, other.Bottom),
	}
}

func (r Rect) Contains(other Rect) bool {
	return r.Left <= other.Left && r.Top <= other.Top && r.Right >= other.Right && r.Bottom >= other.Bottom
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d)", r.Left, r.Top, r.Right, r.Bottom)
}

// BoundsUpdate is one (id, x, y, width, height) quintuple of an updateRegions batch
type BoundsUpdate struct {
	Id     int `json:"id"`
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (bu BoundsUpdate) Rect() Rect {
	return MakeRectXYWH(bu.X, bu.Y, bu.Width, bu.Height)
}

type Orientation int

const (
	OrientationUnset Orientation = iota
	OrientationPortraitUp
	OrientationPortraitDown
	OrientationLandscapeLeft
	OrientationLandscapeRight
	OrientationUnknown
)

func (o Orientation) String() string {
	switch o {
	case OrientationUnset:
		return "unset"
	case OrientationPortraitUp:
		return "portrait-up"
	case OrientationPortraitDown:
		return "portrait-down"
	case OrientationLandscapeLeft:
		return "landscape-left"
	case OrientationLandscapeRight:
		return "landscape-right"
	default:
		return "unknown"
	}
}

// DisplayRotation is the rotation of the default display, in degrees
type DisplayRotation int

const (
	Rotation0   DisplayRotation = 0
	Rotation90  DisplayRotation = 90
	Rotation180 DisplayRotation = 180
	Rotation270 DisplayRotation = 270
)

// ConfigOrientation is the orientation the platform configuration currently reports
type ConfigOrientation int

const (
	ConfigOrientationUndefined ConfigOrientation = iota
	ConfigOrientationPortrait
	ConfigOrientationLandscape
)

// OrientationSensor delivers raw device angle readings (degrees) while enabled
type OrientationSensor interface {
	CanDetectOrientation() bool
	Enable(readingFn func(angle int))
	Disable()
}

// Platform is the host platform context. It may disappear at any time, so
// consumers hold a resolver func and never cache the returned value.
type Platform interface {
	DisplayRotation() (DisplayRotation, error)
	ConfigOrientation() (ConfigOrientation, error)
	OrientationSensor() (OrientationSensor, error)
}

type NetworkEvent struct {
	Url     string            `json:"url"`
	Body    string            `json:"body"`
	Method  string            `json:"method"`
	Stage   string            `json:"stage,omitempty"`
	Headers map[string]string `json:"headers"`
}

// Serialize returns the snapshot sent to the host's onNetworkEvent handler
func (ne *NetworkEvent) Serialize() map[string]any {
	headers := make(map[string]any, len(ne.Headers))
	for k, v := range ne.Headers {
		headers[k] = v
	}
	var stage any
	if ne.Stage != "" {
		stage = ne.Stage
	}
	return map[string]any{
		"url":     ne.Url,
		"body":    ne.Body,
		"method":  ne.Method,
		"stage":   stage,
		"headers": headers,
	}
}

type LogLevel int

const (
	LogLevelInvalid LogLevel = iota
	LogLevelError
	LogLevelWarning
	LogLevelInfo
	LogLevelDebug
	LogLevelVerbose
)

func LogLevelFromInt(val int) (LogLevel, bool) {
	level := LogLevel(val)
	if level < LogLevelError || level > LogLevelVerbose {
		return LogLevelInvalid, false
	}
	return level, true
}

func (l LogLevel) String() string {
	switch l {
	case LogLevelError:
		return "error"
	case LogLevelWarning:
		return "warning"
	case LogLevelInfo:
		return "info"
	case LogLevelDebug:
		return "debug"
	case LogLevelVerbose:
		return "verbose"
	default:
		return "invalid:" + strconv.Itoa(int(l))
	}
}

type LogEvent struct {
	Message string   `json:"message"`
	Level   LogLevel `json:"level"`
}

type IssueSeverity int

const (
	SeverityLow IssueSeverity = iota + 1
	SeverityMedium
	SeverityHigh
	SeverityCritical
	SeverityBlocker
)

type Report struct {
	Type     string        `json:"type"` // "bug", "crash", "error"
	Severity IssueSeverity `json:"severity"`
}

type Attachment struct {
	Name     string `json:"name"`
	FileName string `json:"filename"`
	Data     []byte `json:"data"`
}

type LifecycleEvent int

const (
	LifecycleLaunched LifecycleEvent = iota
	LifecycleStarted
	LifecycleStopped
	LifecycleResumed
	LifecyclePaused
	LifecycleRelaunchedAfterCrash
	LifecycleBeforeReportShown
	LifecycleAfterReportShown
)

// Capture engine hooks. Listeners passed to a filter must be called exactly
// once per event; a nil event means "drop".
type NetworkEventListener func(ev *NetworkEvent)
type LogListener func(ev *LogEvent)
type NetworkEventFilter func(ev *NetworkEvent, listener NetworkEventListener)
type LogFilter func(ev *LogEvent, listener LogListener)

// AttachmentsProvider is async: the answer is delivered through Engine.SetAttachments
type AttachmentsProvider func(report Report)

// Engine is the capture engine as seen by the bridge
type Engine interface {
	SetNetworkEventFilter(filter NetworkEventFilter)
	SetLogFilter(filter LogFilter)
	SetReportAttachmentsProvider(provider AttachmentsProvider)
	SetAttachments(attachments []Attachment)
	SetSecureRects(rects []Rect)
	SetOnNewFeedbackListener(fn func(messages []string))
	SetLifecycleEventsListener(fn func(ev LifecycleEvent))
}

type CallResult struct {
	Status       string `json:"status"`
	Data         any    `json:"data,omitempty"`
	ErrorCode    string `json:"errorcode,omitempty"`
	ErrorMessage string `json:"errormessage,omitempty"`
	ErrorDetails any    `json:"errordetails,omitempty"`
}

func SuccessResult(data any) CallResult {
	return CallResult{Status: CallStatusSuccess, Data: data}
}

func ErrorResult(code string, msg string) CallResult {
	return CallResult{Status: CallStatusError, ErrorCode: code, ErrorMessage: msg}
}

func NotImplementedResult() CallResult {
	return CallResult{Status: CallStatusNotImplemented}
}

// ResultFn receives the outcome of a marshaled call exactly once, on any goroutine
type ResultFn func(res CallResult)

// MethodChannel is the host-side boundary. InvokeMethod must not block on the
// remote end; resultFn may be nil for fire-and-forget calls.
type MethodChannel interface {
	InvokeMethod(method string, args any, resultFn ResultFn)
}

type RegionsConfig struct {
	// edges moving by at most this much snap instead of grow
	SnapTolerance       int   `json:"snaptolerance" yaml:"snaptolerance"`
	OrientationWindowMs int64 `json:"orientationwindowms" yaml:"orientationwindowms"`
	SentinelExtent      int   `json:"sentinelextent" yaml:"sentinelextent"`
}

type OrientationConfig struct {
	Enabled         bool `json:"enabled" yaml:"enabled"`
	ToleranceOffset int  `json:"toleranceoffset" yaml:"toleranceoffset"`
}

type RelayConfig struct {
	ForwardFeedback  bool `json:"forwardfeedback" yaml:"forwardfeedback"`
	ForwardLifecycle bool `json:"forwardlifecycle" yaml:"forwardlifecycle"`
}

type ServerConfig struct {
	// ListenAddr is the websocket listen address. If "" => use default.
	ListenAddr string `json:"listenaddr" yaml:"listenaddr"`
	// AllowedOrigins enables CORS on the server (dev only)
	AllowedOrigins []string `json:"allowedorigins,omitempty" yaml:"allowedorigins,omitempty"`
}

type Config struct {
	Quiet bool `json:"quiet" yaml:"quiet"` // If true, suppresses connect and disconnect messages

	// Dev indicates whether the bridge is in development mode
	Dev bool `json:"dev" yaml:"dev"`

	// LogLevel is a logrus level name ("debug", "info", ...). If "" => info.
	LogLevel string `json:"loglevel" yaml:"loglevel"`

	RegionsConfig     RegionsConfig     `json:"regions" yaml:"regions"`
	OrientationConfig OrientationConfig `json:"orientation" yaml:"orientation"`
	RelayConfig       RelayConfig       `json:"relay" yaml:"relay"`
	ServerConfig      ServerConfig      `json:"server" yaml:"server"`
}

type HostInfo struct {
	Hostname        string `json:"hostname,omitempty"`
	OS              string `json:"os,omitempty"`
	Platform        string `json:"platform,omitempty"`
	PlatformVersion string `json:"platformversion,omitempty"`
	KernelArch      string `json:"kernelarch,omitempty"`
}

type AppInfo struct {
	AppRunId   string    `json:"apprunid"`
	AppName    string    `json:"appname"`
	StartTime  int64     `json:"starttime"`
	Pid        int       `json:"pid"`
	SDKVersion string    `json:"sdkversion"`
	Host       *HostInfo `json:"host,omitempty"`
}
