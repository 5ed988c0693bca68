package input

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/peebo/peebo/internal/browser"
)

// NativeStatus is the outcome of setting a native value.
type NativeStatus string

const (
	NativeOK       NativeStatus = "ok"
	NativeNotFound NativeStatus = "not-found"
	// NativeNoSetter means the element has no platform value setter (e.g contenteditable).
	NativeNoSetter NativeStatus = "no-setter"
)

// nativeValueFn sets the value through the platform setter found on the
// prototype chain. Controlled input frameworks redefine `value` on the element
// itself and drop plain assignments, the prototype setter is not intercepted.
const nativeValueFn = `function peeboNativeValue(sel, value) {
  var el = document.querySelector(sel);
  if (!el) { return 'not-found'; }
  if (el.scrollIntoView) { el.scrollIntoView({block: 'center'}); }
  if (el.focus) { el.focus(); }
  var desc = null;
  var proto = Object.getPrototypeOf(el);
  while (proto && !desc) {
    desc = Object.getOwnPropertyDescriptor(proto, 'value');
    proto = Object.getPrototypeOf(proto);
  }
  if (!desc || typeof desc.set !== 'function') { return 'no-setter'; }
  desc.set.call(el, value);
  el.dispatchEvent(new Event('input', {bubbles: true}));
  el.dispatchEvent(new Event('change', {bubbles: true}));
  var types = ['keydown', 'keypress', 'keyup'];
  for (var i = 0; i < value.length; i++) {
    for (var j = 0; j < types.length; j++) {
      el.dispatchEvent(new KeyboardEvent(types[j], {key: value.charAt(i), bubbles: true}));
    }
  }
  el.dispatchEvent(new Event('blur'));
  return 'ok';
}`

// NativeValueScript returns the expression that sets value on the element
// matching selector.
func NativeValueScript(selector, value string) string {
	return "(" + nativeValueFn + ")(" + jsString(selector) + ", " + jsString(value) + ")"
}

// SetNativeValue sets the value of a form field bypassing framework value
// interceptors, then fires input, change, a key triplet per character and blur.
func SetNativeValue(ctx context.Context, s browser.Session, selector, value string) (NativeStatus, error) {
	var status NativeStatus
	if err := s.Evaluate(ctx, NativeValueScript(selector, value), &status); err != nil {
		return "", fmt.Errorf("could not set native value: %w", err)
	}
	return status, nil
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
