package fontset

// face is one entry of a fallback chain: a regular face and its optional
// true-bold counterpart.
type face struct {
	regular string
	bold    string
}

var chains = map[Script][]face{
	Japanese: {
		{regular: MSGothic},
		{regular: MSMincho},
		{regular: NotoSansJP, bold: NotoSansJPBold},
	},
	Korean: {
		{regular: MalgunGothic},
		{regular: NanumGothic, bold: NanumGothicB},
		{regular: NotoSansKR, bold: NotoSansKRBold},
	},
	Unicode: {
		{regular: NotoSansJP, bold: NotoSansJPBold},
		{regular: NotoSansKR, bold: NotoSansKRBold},
	},
}

// Choice is the outcome of font selection for one text run.
type Choice struct {
	Font   Font
	Script Script
	// SimulateBold asks the caller to fake a bold weight by drawing the run
	// twice, stroke then fill, because the chosen face has no bold variant.
	SimulateBold bool
	// Degraded is set when no registered face covers Script and the core font
	// was used instead. Glyphs outside Latin-1 will not render.
	Degraded bool
}

// Select picks the face used to draw text. Latin text always uses the core
// font. Other scripts walk their fallback chain and take the first registered
// face; a true bold face is preferred when bold is requested.
func (t *Table) Select(text string, bold bool) Choice {
	script := Classify(text)
	if script == Latin {
		return Choice{Font: CoreFont(bold), Script: Latin}
	}

	for _, f := range chains[script] {
		if bold && f.bold != "" {
			if font, ok := t.Get(f.bold); ok {
				return Choice{Font: font, Script: script}
			}
		}
		if font, ok := t.Get(f.regular); ok {
			return Choice{Font: font, Script: script, SimulateBold: bold}
		}
		if f.bold != "" {
			if font, ok := t.Get(f.bold); ok {
				return Choice{Font: font, Script: script}
			}
		}
	}
	return Choice{Font: CoreFont(bold), Script: script, Degraded: true}
}
