package extract

// candidateAttr is the attribute the page script tags every candidate with.
const candidateAttr = "data-peebo-cand"

// collectScript tags the allowlisted candidates of the page in DOM order and
// returns their raw facts. Filtering and naming happen on the Go side.
const collectScript = `(function peeboCollect() {
  var SEL = 'input:not([type="hidden"]), textarea, select, button, a[href], ' +
    '[role="button"], [role="link"], [role="checkbox"], [role="radio"], [role="tab"], ' +
    '[role="menuitem"], [role="option"], [role="combobox"], [role="textbox"], [role="switch"], ' +
    '[tabindex], [onclick], [contenteditable="true"]';
  var ATTR = '` + candidateAttr + `';
  var old = document.querySelectorAll('[' + ATTR + ']');
  for (var i = 0; i < old.length; i++) { old[i].removeAttribute(ATTR); }
  function text(el) { return el ? String(el.innerText || el.textContent || '').replace(/\s+/g, ' ').trim() : ''; }
  var nodes = document.querySelectorAll(SEL);
  var out = [];
  for (var k = 0; k < nodes.length; k++) {
    var el = nodes[k];
    el.setAttribute(ATTR, String(k + 1));
    var st = window.getComputedStyle(el);
    var r = el.getBoundingClientRect();
    var lb = '';
    var ids = (el.getAttribute('aria-labelledby') || '').split(/\s+/);
    for (var j = 0; j < ids.length; j++) {
      if (!ids[j]) { continue; }
      var ref = document.getElementById(ids[j]);
      if (ref) { lb += ' ' + text(ref); }
    }
    var lf = '';
    if (el.id) {
      var l = document.querySelector('label[for="' + CSS.escape(el.id) + '"]');
      if (l) { lf = text(l); }
    }
    var enc = el.closest ? el.closest('label') : null;
    var op = parseFloat(st.opacity);
    out.push({
      k: k + 1,
      tag: el.tagName.toLowerCase(),
      type: (el.getAttribute('type') || '').toLowerCase(),
      role: el.getAttribute('role') || '',
      display: st.display,
      visibility: st.visibility,
      opacity: isNaN(op) ? 1 : op,
      x: r.left, y: r.top, width: r.width, height: r.height,
      disabled: !!el.disabled || el.getAttribute('aria-disabled') === 'true',
      required: !!el.required,
      checked: !!el.checked,
      value: (typeof el.value === 'string') ? el.value : '',
      placeholder: el.getAttribute('placeholder') || '',
      ariaLabel: el.getAttribute('aria-label') || '',
      labelledBy: lb.trim(),
      labelFor: lf,
      enclosingLabel: text(enc),
      alt: el.getAttribute('alt') || '',
      title: el.getAttribute('title') || '',
      innerText: text(el).slice(0, 200)
    });
  }
  return {
    url: location.href,
    title: document.title,
    scrollX: window.scrollX,
    scrollY: window.scrollY,
    scrollHeight: document.documentElement.scrollHeight,
    viewportWidth: window.innerWidth,
    viewportHeight: window.innerHeight,
    candidates: out
  };
})()`
