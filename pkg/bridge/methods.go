// Copyright 2025, Command Line Inc.
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/outrigdev/sessionbridge/pkg/ds"
	"github.com/outrigdev/sessionbridge/pkg/panichandler"
	"github.com/outrigdev/sessionbridge/pkg/regions"
	"github.com/outrigdev/sessionbridge/pkg/utilfn"
)

var ErrNotImplemented = errors.New("method not implemented")
var ErrInvalidArgs = errors.New("invalid arguments")

const ErrorCodeInvalidArgs = "invalidargs"
const ErrorCodeInternal = "internal"

type methodFn func(b *Bridge, ctx context.Context, args map[string]any) (any, error)

var methodTable = map[string]methodFn{
	"updateRegions":          (*Bridge).updateRegions,
	"setSecureRectsInternal": (*Bridge).updateRegions,
	"addRegion":              (*Bridge).addRegion,
	"addSecureRect":          (*Bridge).addRegion,
	"removeRegion":           (*Bridge).removeRegion,
	"removeSecureRect":       (*Bridge).removeRegion,
	"removeAllRegions":       (*Bridge).removeAllRegions,
	"removeAllSecureRects":   (*Bridge).removeAllRegions,
	"getAllRegions":          (*Bridge).getAllRegions,
	"getAllSecureRects":      (*Bridge).getAllRegions,
	"setCallbackActive":      (*Bridge).setCallbackActive,
	"setCallbackState":       (*Bridge).setCallbackState,
	"getDiagnostics":         (*Bridge).getDiagnostics,
}

// HandleMethodCall dispatches one inbound host call by name
func (b *Bridge) HandleMethodCall(ctx context.Context, method string, args any) (any, error) {
	fn, ok := methodTable[method]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotImplemented, method)
	}
	var argMap map[string]any
	if args != nil {
		argMap, ok = args.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects a map, got %T", ErrInvalidArgs, method, args)
		}
	}
	return fn(b, ctx, argMap)
}

// HandleCall is HandleMethodCall flattened into a call result for the wire
func (b *Bridge) HandleCall(ctx context.Context, method string, args any) (rtn ds.CallResult) {
	defer func() {
		if panicErr := panichandler.PanicHandler("bridge:"+method, recover()); panicErr != nil {
			rtn = ds.ErrorResult(ErrorCodeInternal, panicErr.Error())
		}
	}()
	data, err := b.HandleMethodCall(ctx, method, args)
	switch {
	case err == nil:
		return ds.SuccessResult(data)
	case errors.Is(err, ErrNotImplemented):
		return ds.NotImplementedResult()
	case errors.Is(err, ErrInvalidArgs):
		return ds.ErrorResult(ErrorCodeInvalidArgs, err.Error())
	default:
		return ds.ErrorResult(ErrorCodeInternal, err.Error())
	}
}

func getIntArg(args map[string]any, key string) (int, error) {
	val, ok := args[key]
	if !ok || val == nil {
		return 0, fmt.Errorf("%w: missing %q", ErrInvalidArgs, key)
	}
	rtn, ok := utilfn.ToInt(val)
	if !ok {
		return 0, fmt.Errorf("%w: %q must be a number, got %T", ErrInvalidArgs, key, val)
	}
	return rtn, nil
}

func getStringArg(args map[string]any, key string) (string, error) {
	val, ok := utilfn.ToString(args[key])
	if !ok {
		return "", fmt.Errorf("%w: %q must be a string", ErrInvalidArgs, key)
	}
	return val, nil
}

func getBoolArg(args map[string]any, key string) (bool, error) {
	val, ok := utilfn.ToBool(args[key])
	if !ok {
		return false, fmt.Errorf("%w: %q must be a bool", ErrInvalidArgs, key)
	}
	return val, nil
}

func getRectArgs(args map[string]any) (ds.Rect, error) {
	var vals [4]int
	for i, key := range []string{"x", "y", "width", "height"} {
		val, err := getIntArg(args, key)
		if err != nil {
			return ds.Rect{}, err
		}
		vals[i] = val
	}
	return ds.MakeRectXYWH(vals[0], vals[1], vals[2], vals[3]), nil
}

// updateRegions: an absent or null bounds argument clears the tracked set
func (b *Bridge) updateRegions(ctx context.Context, args map[string]any) (any, error) {
	var flat []int
	if rawBounds := args["bounds"]; rawBounds != nil {
		var ok bool
		flat, ok = utilfn.ToIntSlice(rawBounds)
		if !ok {
			return nil, fmt.Errorf("%w: \"bounds\" must be a numeric list", ErrInvalidArgs)
		}
	}
	batch, err := regions.BoundsFromFlat(flat)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}
	b.Tracker.UpdateRegions(batch)
	return nil, nil
}

func (b *Bridge) addRegion(ctx context.Context, args map[string]any) (any, error) {
	rect, err := getRectArgs(args)
	if err != nil {
		return nil, err
	}
	b.Tracker.AddRegion(rect)
	return nil, nil
}

func (b *Bridge) removeRegion(ctx context.Context, args map[string]any) (any, error) {
	rect, err := getRectArgs(args)
	if err != nil {
		return nil, err
	}
	b.Tracker.RemoveRegion(rect)
	return nil, nil
}

func (b *Bridge) removeAllRegions(ctx context.Context, args map[string]any) (any, error) {
	b.Tracker.RemoveAll()
	return nil, nil
}

// getAllRegions returns [x, y, width, height] per static rect
func (b *Bridge) getAllRegions(ctx context.Context, args map[string]any) (any, error) {
	rects := b.Tracker.GetAllRegions()
	rtn := make([][]float64, 0, len(rects))
	for _, r := range rects {
		rtn = append(rtn, []float64{float64(r.Left), float64(r.Top), float64(r.Width()), float64(r.Height())})
	}
	return rtn, nil
}

func (b *Bridge) setCallbackActive(ctx context.Context, args map[string]any) (any, error) {
	return b.applyCallbackState(args, "name", "enabled")
}

func (b *Bridge) setCallbackState(ctx context.Context, args map[string]any) (any, error) {
	return b.applyCallbackState(args, "callbackName", "state")
}

func (b *Bridge) applyCallbackState(args map[string]any, nameKey string, stateKey string) (any, error) {
	name, err := getStringArg(args, nameKey)
	if err != nil {
		return nil, err
	}
	enabled, err := getBoolArg(args, stateKey)
	if err != nil {
		return nil, err
	}
	b.Registry.SetActive(name, enabled)
	return nil, nil
}

func (b *Bridge) getDiagnostics(ctx context.Context, args map[string]any) (any, error) {
	var rtn map[string]any
	if err := utilfn.ReUnmarshal(&rtn, b.Diagnostics()); err != nil {
		return nil, err
	}
	return rtn, nil
}
