// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"github.com/outrigdev/sessionbridge/pkg/ds"
	"github.com/outrigdev/sessionbridge/pkg/utilfn"
)

// Interceptor is one captured event on its way to the host. Exactly one of
// ReleaseOriginal, ApplyResult (returning true) or ReleaseDefault hands the
// event back to the engine; the relay guarantees only one of them is reached.
type Interceptor interface {
	Method() string
	// Args is the snapshot sent to the host, taken at capture time
	Args() any
	ReleaseOriginal()
	// ApplyResult applies a success payload onto the live event and releases it.
	// Returns false (releasing nothing) if data does not match the expected shape.
	ApplyResult(data any) bool
	ReleaseDefault()
}

type NetworkFilter struct {
	ev       *ds.NetworkEvent
	listener ds.NetworkEventListener
	args     []any
}

func MakeNetworkFilter(ev *ds.NetworkEvent, listener ds.NetworkEventListener) *NetworkFilter {
	return &NetworkFilter{ev: ev, listener: listener, args: []any{ev.Serialize()}}
}

func (nf *NetworkFilter) Method() string { return ds.MethodOnNetworkEvent }

func (nf *NetworkFilter) Args() any { return nf.args }

func (nf *NetworkFilter) ReleaseOriginal() {
	nf.listener(nf.ev)
}

// ApplyResult expects {url, body, headers}; keys that are absent or null are left alone
func (nf *NetworkFilter) ApplyResult(data any) bool {
	resultMap, ok := data.(map[string]any)
	if !ok {
		return false
	}
	url, body := nf.ev.Url, nf.ev.Body
	headers := nf.ev.Headers
	if val := resultMap["url"]; val != nil {
		if url, ok = utilfn.ToString(val); !ok {
			return false
		}
	}
	if val := resultMap["body"]; val != nil {
		if body, ok = utilfn.ToString(val); !ok {
			return false
		}
	}
	if val := resultMap["headers"]; val != nil {
		if headers, ok = utilfn.ToStringMap(val); !ok {
			return false
		}
	}
	nf.ev.Url = url
	nf.ev.Body = body
	nf.ev.Headers = headers
	nf.listener(nf.ev)
	return true
}

func (nf *NetworkFilter) ReleaseDefault() {
	nf.listener(nil)
}

type LogFilter struct {
	ev       *ds.LogEvent
	listener ds.LogListener
	args     []any
}

func MakeLogFilter(ev *ds.LogEvent, listener ds.LogListener) *LogFilter {
	return &LogFilter{ev: ev, listener: listener, args: []any{ev.Message, int(ev.Level)}}
}

func (lf *LogFilter) Method() string { return ds.MethodOnLogEvent }

func (lf *LogFilter) Args() any { return lf.args }

func (lf *LogFilter) ReleaseOriginal() {
	lf.listener(lf.ev)
}

// ApplyResult expects [message, levelInt]
func (lf *LogFilter) ApplyResult(data any) bool {
	list, ok := utilfn.ToList(data)
	if !ok || len(list) < 2 {
		return false
	}
	message, ok := utilfn.ToString(list[0])
	if !ok {
		return false
	}
	levelInt, ok := utilfn.ToInt(list[1])
	if !ok {
		return false
	}
	level, ok := ds.LogLevelFromInt(levelInt)
	if !ok {
		return false
	}
	lf.ev.Message = message
	lf.ev.Level = level
	lf.listener(lf.ev)
	return true
}

func (lf *LogFilter) ReleaseDefault() {
	lf.listener(nil)
}

// AttachmentProvider answers the engine's async attachment request through setFn
type AttachmentProvider struct {
	report ds.Report
	setFn  func(attachments []ds.Attachment)
	args   []any
}

func MakeAttachmentProvider(report ds.Report, setFn func(attachments []ds.Attachment)) *AttachmentProvider {
	return &AttachmentProvider{report: report, setFn: setFn, args: []any{report.Type, int(report.Severity)}}
}

func (ap *AttachmentProvider) Method() string { return ds.MethodOnAttachmentsForReport }

func (ap *AttachmentProvider) Args() any { return ap.args }

// ReleaseOriginal answers with no attachments; there is nothing to pass through
func (ap *AttachmentProvider) ReleaseOriginal() {
	ap.setFn([]ds.Attachment{})
}

// ApplyResult expects a list of [name, fileName, rawBytes]. Entries with empty data are skipped.
func (ap *AttachmentProvider) ApplyResult(data any) bool {
	attachments, ok := ParseAttachments(data)
	if !ok {
		return false
	}
	ap.setFn(attachments)
	return true
}

func (ap *AttachmentProvider) ReleaseDefault() {
	ap.setFn([]ds.Attachment{})
}

func ParseAttachments(data any) ([]ds.Attachment, bool) {
	items, ok := utilfn.ToList(data)
	if !ok {
		return nil, false
	}
	rtn := make([]ds.Attachment, 0, len(items))
	for _, item := range items {
		fields, ok := utilfn.ToList(item)
		if !ok || len(fields) < 3 {
			return nil, false
		}
		name, ok := utilfn.ToString(fields[0])
		if !ok {
			return nil, false
		}
		fileName, ok := utilfn.ToString(fields[1])
		if !ok {
			return nil, false
		}
		if fields[2] == nil {
			continue
		}
		rawData, ok := utilfn.ToBytes(fields[2])
		if !ok {
			return nil, false
		}
		if len(rawData) == 0 {
			continue
		}
		rtn = append(rtn, ds.Attachment{Name: name, FileName: fileName, Data: rawData})
	}
	return rtn, true
}
