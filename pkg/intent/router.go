// Package intent maps a transcript to a closed set of assistant commands via
// an ordered table of deterministic pattern rules.
package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind is the closed set of intents the assistant understands.
type Kind string

const (
	PlayMedia   Kind = "play_media"
	Pause       Kind = "pause"
	Resume      Kind = "resume"
	VolumeUp    Kind = "volume_up"
	VolumeDown  Kind = "volume_down"
	VolumeSet   Kind = "volume_set"
	Shutdown    Kind = "shutdown"
	Reboot      Kind = "reboot"
	Fullscreen  Kind = "fullscreen"
	Close       Kind = "close"
	NextTrack   Kind = "next_track"
	PrevTrack   Kind = "prev_track"
	Unknown     Kind = "unknown"
)

// Intent is the routed result: a Kind plus whatever arguments its capture
// semantics extracted.
type Intent struct {
	Kind   Kind
	Query  string
	Params map[string]interface{}
}

type capture int

const (
	captureNone capture = iota
	captureQuery
	captureLevel
)

type rule struct {
	pattern *regexp.Regexp
	kind    Kind
	capture capture
}

// Router applies an ordered regex table against lowercased, trimmed text;
// the first match wins. Unmatched input yields Unknown.
type Router struct {
	rules []rule
}

// NewRouter builds the router with the fixed pattern table. Rule order is
// significant.
func NewRouter() *Router {
	return &Router{rules: []rule{
		{regexp.MustCompile(`(?:включи|поставь|запусти)\s+(.+)`), PlayMedia, captureQuery},
		{regexp.MustCompile(`(?:пауза|стоп|останови)`), Pause, captureNone},
		{regexp.MustCompile(`(?:продолжи|играй|play)`), Resume, captureNone},
		{regexp.MustCompile(`(?:громче|прибавь звук)`), VolumeUp, captureNone},
		{regexp.MustCompile(`(?:тише|убавь звук)`), VolumeDown, captureNone},
		{regexp.MustCompile(`(?:громкость)\s+(\d+)`), VolumeSet, captureLevel},
		{regexp.MustCompile(`(?:выключи компьютер|shutdown)`), Shutdown, captureNone},
		{regexp.MustCompile(`(?:перезагрузи|перезагрузка)`), Reboot, captureNone},
		{regexp.MustCompile(`(?:на весь экран|фулскрин|fullscreen)`), Fullscreen, captureNone},
		{regexp.MustCompile(`(?:закрой|выйди)`), Close, captureNone},
		{regexp.MustCompile(`(?:следующ|дальше|next)`), NextTrack, captureNone},
		{regexp.MustCompile(`(?:предыдущ|назад|prev)`), PrevTrack, captureNone},
	}}
}

// Route classifies a transcript. Its decision depends only on the
// lowercased, trimmed form of text.
func (r *Router) Route(text string) Intent {
	normalized := strings.ToLower(strings.TrimSpace(text))
	for _, rl := range r.rules {
		m := rl.pattern.FindStringSubmatch(normalized)
		if m == nil {
			continue
		}
		switch rl.capture {
		case captureQuery:
			return Intent{Kind: rl.kind, Query: strings.TrimSpace(m[1])}
		case captureLevel:
			level, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			return Intent{Kind: rl.kind, Params: map[string]interface{}{"level": level}}
		default:
			return Intent{Kind: rl.kind}
		}
	}
	return Intent{Kind: Unknown, Query: text}
}
