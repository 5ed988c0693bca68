package input

import (
	"strconv"
)

const pointAttr = "data-peebo-point"

// pointSelector matches the element tagged by pointScript.
const pointSelector = `[` + pointAttr + `="1"]`

type found struct {
	Found bool    `json:"found"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

type viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func onElement(name, selector, body string) string {
	return `(function ` + name + `(sel) {
  var el = document.querySelector(sel);
  if (!el) { return {found: false}; }
` + body + `
})(` + jsString(selector) + `)`
}

func clickScript(selector string) string {
	return onElement("peeboClick", selector, `  el.scrollIntoView({block: 'center', inline: 'center'});
  if (el.focus) { el.focus(); }
  var r = el.getBoundingClientRect();
  var o = {bubbles: true, cancelable: true, view: window, button: 0,
    clientX: r.left + r.width / 2, clientY: r.top + r.height / 2};
  el.dispatchEvent(new MouseEvent('mousedown', o));
  el.dispatchEvent(new MouseEvent('mouseup', o));
  el.click();
  return {found: true};`)
}

func centerScript(selector string) string {
	return onElement("peeboCenter", selector, `  el.scrollIntoView({block: 'center', inline: 'center'});
  var r = el.getBoundingClientRect();
  return {found: true, x: r.left + r.width / 2, y: r.top + r.height / 2};`)
}

func focusScript(selector string) string {
	return onElement("peeboFocus", selector, `  el.scrollIntoView({block: 'center'});
  if (el.focus) { el.focus(); }
  return {found: true};`)
}

func existsScript(selector string) string {
	return onElement("peeboExists", selector, `  return {found: true};`)
}

// pointScript tags the element at viewport coordinates so protocol calls that
// need a selector can address it.
func pointScript(x, y float64) string {
	return `(function peeboPoint(x, y) {
  var prev = document.querySelectorAll('[` + pointAttr + `]');
  for (var i = 0; i < prev.length; i++) { prev[i].removeAttribute('` + pointAttr + `'); }
  var el = document.elementFromPoint(x, y);
  if (!el) { return {found: false}; }
  el.setAttribute('` + pointAttr + `', '1');
  return {found: true, x: x, y: y};
})(` + fmtFloat(x) + `, ` + fmtFloat(y) + `)`
}

const viewportScript = `(function peeboViewport() {
  return {width: window.innerWidth, height: window.innerHeight};
})()`

func fmtFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
