// Package engine contains the fetch backends and the capability contract
// they share.
package engine

import (
	"context"
	"reflect"

	"github.com/use-agent/fetchkit/models"
	"github.com/use-agent/fetchkit/parser"
)

// Engine is the capability every fetch backend exposes: retrieve a target
// and return the unified response. Built-in engines are trusted by
// construction; caller-supplied engines go through Check first.
type Engine interface {
	Fetch(ctx context.Context, url string) (*parser.Response, error)
}

// Configurable is optionally implemented by custom engines that want the
// shared parsing options and call-time keyword configuration before their
// Fetch is invoked.
type Configurable interface {
	Configure(parsing parser.Options, kwargs map[string]any)
}

// Check verifies that candidate exposes a usable fetch capability and
// returns it as an Engine. The rules, in order:
//
//  1. candidate must have a member named Fetch;
//  2. that member must be invocable;
//  3. the callable must accept at least one argument.
//
// Values that already implement Engine pass unchanged. Other candidates are
// adapted by reflection: string parameters receive the target URL,
// context.Context parameters receive the call context, and the first
// *parser.Response and error results are used.
func Check(candidate any) (Engine, error) {
	if candidate == nil {
		return nil, models.NewEngineError("missing fetch capability")
	}
	if eng, ok := candidate.(Engine); ok {
		return eng, nil
	}

	fn, err := fetchMember(candidate)
	if err != nil {
		return nil, err
	}
	if fn.Type().NumIn() == 0 {
		return nil, models.NewEngineError("fetch takes no arguments")
	}
	return &reflected{fetch: fn}, nil
}

// fetchMember locates the Fetch method or func-typed Fetch field.
func fetchMember(candidate any) (reflect.Value, error) {
	v := reflect.ValueOf(candidate)

	if m := v.MethodByName("Fetch"); m.IsValid() {
		return m, nil
	}

	s := v
	if s.Kind() == reflect.Ptr {
		s = s.Elem()
	}
	if s.Kind() == reflect.Struct {
		if f := s.FieldByName("Fetch"); f.IsValid() {
			if f.Kind() != reflect.Func || f.IsNil() {
				return reflect.Value{}, models.NewEngineError("fetch is not invocable")
			}
			return f, nil
		}
	}
	return reflect.Value{}, models.NewEngineError("missing fetch capability")
}

// reflected adapts a capability-checked callable to the Engine interface.
type reflected struct {
	fetch reflect.Value
}

var ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()

func (r *reflected) Fetch(ctx context.Context, url string) (*parser.Response, error) {
	t := r.fetch.Type()

	args := make([]reflect.Value, t.NumIn())
	for i := range args {
		in := t.In(i)
		switch {
		case in == ctxType:
			args[i] = reflect.ValueOf(ctx)
		case in.Kind() == reflect.String:
			args[i] = reflect.ValueOf(url)
		default:
			args[i] = reflect.Zero(in)
		}
	}

	var (
		resp *parser.Response
		err  error
	)
	for _, out := range r.fetch.Call(args) {
		switch v := out.Interface().(type) {
		case *parser.Response:
			resp = v
		case error:
			err = v
		}
	}
	if resp == nil && err == nil {
		err = models.NewEngineError("fetch returned no response")
	}
	return resp, err
}
