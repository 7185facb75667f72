// File: internal/browser/js.go
package browser

import "strconv"

// jsString renders s as a JavaScript string literal safe to splice into a
// script template.
func jsString(s string) string {
	return strconv.Quote(s)
}

// jsPresentCSS reports whether a CSS selector matches a displayed element.
const jsPresentCSS = `(() => {
	const el = document.querySelector(%s);
	if (!el) return false;
	const r = el.getBoundingClientRect();
	return r.width > 0 && r.height > 0;
})()`

// jsPresentXPath reports whether an XPath expression matches a displayed
// element.
const jsPresentXPath = `(() => {
	const el = document.evaluate(%s, document, null,
		XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
	if (!el) return false;
	const r = el.getBoundingClientRect();
	return r.width > 0 && r.height > 0;
})()`

// jsFindByText walks interactable elements looking for the first displayed
// one whose own text contains the target. When the second argument is true
// the match is tagged with a transient data attribute and its selector is
// returned; otherwise an existing tag is reused if present. Returns "" when
// nothing matches.
const jsFindByText = `(() => {
	const target = %s;
	const tag = %s;
	const candidates = document.querySelectorAll(
		'a, button, input, span, div, td, th, li, label, p, h1, h2, h3, h4');
	for (const el of candidates) {
		const r = el.getBoundingClientRect();
		if (r.width === 0 || r.height === 0) continue;
		const text = (el.innerText || el.value || '').trim();
		if (!text || !text.includes(target)) continue;
		// Prefer the innermost match: skip elements whose matching child
		// will also be visited.
		let inner = false;
		for (const child of el.querySelectorAll('*')) {
			if ((child.innerText || '').trim().includes(target)) {
				const cr = child.getBoundingClientRect();
				if (cr.width > 0 && cr.height > 0) { inner = true; break; }
			}
		}
		if (inner) continue;
		if (!tag) return 'found';
		const id = 'ub-' + Math.random().toString(36).slice(2, 10);
		el.setAttribute('data-ub-target', id);
		return '[data-ub-target="' + id + '"]';
	}
	return '';
})()`
