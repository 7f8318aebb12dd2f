package browser

// snapshotScript walks the DOM collecting clickable and typeable elements.
// Every collected element is tagged with data-webpilot-index so later Click
// and Type calls can address it by snapshot index. Indices are shared across
// both lists so each id names exactly one element.
const snapshotScript = `() => {
	const clickable = [];
	const typeable = [];
	let index = 0;

	const visible = (el) => {
		const style = window.getComputedStyle(el);
		if (style.display === 'none' || style.visibility === 'hidden') return false;
		const rect = el.getBoundingClientRect();
		return rect.width > 0 && rect.height > 0;
	};

	const pathOf = (el) => {
		const parts = [];
		let node = el;
		while (node && node.tagName && parts.length < 5) {
			parts.unshift(node.tagName.toLowerCase());
			node = node.parentElement;
		}
		return parts.join('>');
	};

	const attrsOf = (el) => {
		const out = {};
		for (const name of ['id', 'name', 'type', 'placeholder', 'href', 'role', 'aria-label', 'value']) {
			const v = el.getAttribute(name);
			if (v) out[name] = v.slice(0, 100);
		}
		return out;
	};

	const contextOf = (el) => {
		const parent = el.parentElement;
		if (!parent) return '';
		return (parent.innerText || '').slice(0, 120);
	};

	const record = (el) => ({
		index: 0,
		tag: el.tagName.toLowerCase(),
		text: (el.innerText || el.value || el.getAttribute('aria-label') || el.getAttribute('placeholder') || '').slice(0, 200),
		context: contextOf(el),
		path: pathOf(el),
		attributes: attrsOf(el),
	});

	const clickableSelector = 'a, button, [role="button"], [role="link"], [role="tab"], [role="menuitem"], [onclick], input[type="submit"], input[type="button"], input[type="checkbox"], input[type="radio"], select, summary';
	const typeableSelector = 'input:not([type="submit"]):not([type="button"]):not([type="checkbox"]):not([type="radio"]):not([type="hidden"]), textarea, [contenteditable="true"], [role="textbox"], [role="searchbox"], [role="combobox"]';

	for (const el of document.querySelectorAll(typeableSelector)) {
		if (!visible(el)) continue;
		const r = record(el);
		r.index = index;
		el.setAttribute('data-webpilot-index', String(index));
		index++;
		typeable.push(r);
	}
	for (const el of document.querySelectorAll(clickableSelector)) {
		if (!visible(el)) continue;
		if (el.hasAttribute('data-webpilot-index')) continue;
		const r = record(el);
		r.index = index;
		el.setAttribute('data-webpilot-index', String(index));
		index++;
		clickable.push(r);
	}
	return { clickable, typeable };
}`

// a11yScript builds an id-indexed accessibility tree from the live DOM,
// inferring roles from tags where no explicit role attribute is present.
const a11yScript = `() => {
	const nodes = {};
	let counter = 0;

	const roleFor = (el) => {
		const explicit = el.getAttribute('role');
		if (explicit) return explicit;
		const tag = el.tagName.toLowerCase();
		const map = {
			a: 'link', button: 'button', nav: 'navigation', main: 'main',
			article: 'article', section: 'section', form: 'form',
			input: 'textbox', textarea: 'textbox', select: 'combobox',
			h1: 'heading', h2: 'heading', h3: 'heading', h4: 'heading',
			h5: 'heading', h6: 'heading', img: 'image', ul: 'list',
			ol: 'list', li: 'listitem', table: 'table',
		};
		if (tag === 'input') {
			const type = (el.getAttribute('type') || 'text').toLowerCase();
			if (type === 'checkbox') return 'checkbox';
			if (type === 'submit' || type === 'button') return 'button';
		}
		return map[tag] || 'generic';
	};

	const nameFor = (el) => {
		return (el.getAttribute('aria-label') ||
			el.getAttribute('alt') ||
			el.getAttribute('placeholder') ||
			(el.childElementCount === 0 ? (el.innerText || '') : (el.innerText || '').slice(0, 80)) ||
			'').trim().slice(0, 200);
	};

	const walk = (el) => {
		const id = 'n' + (counter++);
		const childIds = [];
		for (const child of el.children) {
			childIds.push(walk(child));
		}
		const attributes = {};
		const level = el.tagName.match(/^H([1-6])$/i);
		if (level) attributes.level = level[1];
		if (el.tabIndex >= 0) attributes.focusable = 'true';
		nodes[id] = {
			role: roleFor(el),
			name: nameFor(el),
			value: el.value !== undefined && typeof el.value === 'string' ? el.value.slice(0, 200) : '',
			attributes,
			childIds,
		};
		return id;
	};

	const rootId = walk(document.body);
	return { rootId, nodes };
}`
