package crawler

// Interactive predicate and per-candidate facts. Filtering and selector
// synthesis happen in Go (see Distill) so they can be tested without a browser.
const snapshotJS = `(bodyLimit) => {
	const predicate = 'a, button, input, select, textarea, [role="button"], [tabindex]:not([tabindex="-1"])';
	const candidates = [];
	document.querySelectorAll(predicate).forEach(el => {
		const rect = el.getBoundingClientRect();
		candidates.push({
			tag: el.tagName,
			id: el.id || '',
			class: el.getAttribute('class') || '',
			innerText: typeof el.innerText === 'string' ? el.innerText.slice(0, 200) : '',
			value: typeof el.value === 'string' ? el.value.slice(0, 200) : '',
			placeholder: el.getAttribute('placeholder') || '',
			ariaLabel: el.getAttribute('aria-label') || '',
			type: typeof el.type === 'string' ? el.type : '',
			width: rect.width,
			height: rect.height,
			display: getComputedStyle(el).display
		});
	});
	return {
		url: window.location.href,
		title: document.title,
		bodyText: document.body ? document.body.innerText.slice(0, bodyLimit) : '',
		candidates: candidates
	};
}`

// Invalid selectors throw from querySelector; treat them as not found.
const locateJS = `(sel) => {
	let el;
	try { el = document.querySelector(sel); } catch (e) { return null; }
	if (!el) return null;
	const r = el.getBoundingClientRect();
	return { x: r.left + window.scrollX, y: r.top + window.scrollY, width: r.width, height: r.height };
}`

const ensureOverlayJS = `
	let overlay = document.getElementById('__shadowlight_overlay');
	if (!overlay) {
		overlay = document.createElement('div');
		overlay.id = '__shadowlight_overlay';
		overlay.style.cssText = 'position: fixed; top: 0; left: 0; width: 100%; height: 100%;' +
			'background: rgba(0,0,0,0.4); z-index: 999998; pointer-events: none;' +
			'transition: opacity 0.3s; opacity: 0;';
		document.body.appendChild(overlay);
	}
	let spotlight = document.getElementById('__shadowlight_spotlight');
	if (!spotlight) {
		spotlight = document.createElement('div');
		spotlight.id = '__shadowlight_spotlight';
		spotlight.style.cssText = 'position: absolute; border: 3px solid #6366f1; border-radius: 8px;' +
			'box-shadow: 0 0 15px rgba(99, 102, 241, 0.5), 0 0 0 4000px rgba(0,0,0,0.3);' +
			'z-index: 999999; pointer-events: none;' +
			'transition: all 0.4s cubic-bezier(0.16, 1, 0.3, 1); display: none;';
		document.body.appendChild(spotlight);
	}
`

// The document may have been replaced since Mount, so paint re-creates nodes.
const paintJS = `(visible, x, y, w, h) => {` + ensureOverlayJS + `
	overlay.style.opacity = visible ? '1' : '0';
	spotlight.style.display = visible ? 'block' : 'none';
	if (visible) {
		spotlight.style.top = y + 'px';
		spotlight.style.left = x + 'px';
		spotlight.style.width = w + 'px';
		spotlight.style.height = h + 'px';
	}
}`

const scrollJS = `(sel) => {
	let el;
	try { el = document.querySelector(sel); } catch (e) { return; }
	if (el) el.scrollIntoView({ behavior: 'smooth', block: 'center' });
}`

const themeJS = `(css) => {
	let tag = document.getElementById('__shadowlight_theme');
	if (!tag) {
		if (!css) return;
		tag = document.createElement('style');
		tag.id = '__shadowlight_theme';
		(document.head || document.documentElement).appendChild(tag);
	}
	tag.textContent = css;
}`

const countVisibleJS = `() => {
	const buttons = document.querySelectorAll('button, [role="button"], input[type="submit"]');
	const inputs = document.querySelectorAll('input:not([type="hidden"]), textarea');
	const links = document.querySelectorAll('a[href]');
	let visible = 0;
	buttons.forEach(el => { if (el.offsetParent) visible++; });
	inputs.forEach(el => { if (el.offsetParent) visible++; });
	links.forEach(el => { if (el.offsetParent) visible++; });
	return visible;
}`
