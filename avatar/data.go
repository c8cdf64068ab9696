package avatar

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/hasbyte1/go-unplugged/urlargs"
)

const (
	// DefaultSize is the avatar edge length in pixels when none, or one
	// below [MinSize], is requested.
	DefaultSize = 96

	// MinSize is the smallest size honoured.
	MinSize = 16
)

// Args are the caller's avatar options.  Zero values select the defaults.
type Args struct {
	Size         int
	Height       int
	Width        int
	Default      string
	ForceDefault bool
	Rating       string

	// Scheme, ProcessedArgs and ExtraAttr are carried through to [Data]
	// unchanged for the host's rendering code.
	Scheme        *string
	ProcessedArgs any
	ExtraAttr     string
}

// Data describes a resolved avatar.  Its JSON form always has every key;
// "default" is false when no default image is requested and "url" is false
// when no address could be resolved.
type Data struct {
	Size          int
	Height        int
	Width         int
	Default       string
	ForceDefault  bool
	Rating        string
	Scheme        *string
	ProcessedArgs any
	ExtraAttr     string
	FoundAvatar   bool
	URL           string
}

// MarshalJSON implements [json.Marshaler].
func (d Data) MarshalJSON() ([]byte, error) {
	var def, u any = false, false
	if d.Default != "" {
		def = d.Default
	}
	if d.URL != "" {
		u = d.URL
	}
	return json.Marshal(struct {
		Size          int     `json:"size"`
		Height        int     `json:"height"`
		Width         int     `json:"width"`
		Default       any     `json:"default"`
		ForceDefault  bool    `json:"force_default"`
		Rating        string  `json:"rating"`
		Scheme        *string `json:"scheme"`
		ProcessedArgs any     `json:"processed_args"`
		ExtraAttr     string  `json:"extra_attr"`
		FoundAvatar   bool    `json:"found_avatar"`
		URL           any     `json:"url"`
	}{d.Size, d.Height, d.Width, def, d.ForceDefault, d.Rating, d.Scheme, d.ProcessedArgs, d.ExtraAttr, d.FoundAvatar, u})
}

func (e *Engine) normalizeArgs(a Args) Data {
	d := Data{
		Size:          a.Size,
		Height:        a.Height,
		Width:         a.Width,
		Default:       a.Default,
		ForceDefault:  a.ForceDefault,
		Rating:        strings.ToLower(a.Rating),
		Scheme:        a.Scheme,
		ProcessedArgs: a.ProcessedArgs,
		ExtraAttr:     a.ExtraAttr,
	}
	if d.Size < MinSize {
		d.Size = DefaultSize
	}
	if d.Height < MinSize {
		d.Height = d.Size
	}
	if d.Width < MinSize {
		d.Width = d.Size
	}

	if d.Default == "" {
		d.Default = e.defaultAvatar
	}
	switch d.Default {
	case "mm", "mystery", "mysteryman":
		d.Default = "mm"
	case "gravatar_default":
		d.Default = ""
	}

	if d.Rating == "" {
		d.Rating = e.rating
	}
	return d
}

// Data resolves subject and describes its avatar.  It never fails: when no
// valid address can be resolved the result has FoundAvatar false and no URL.
func (e *Engine) Data(ctx context.Context, s Subject, args Args) Data {
	d := e.normalizeArgs(args)

	email, err := e.resolver.ResolveEmail(ctx, s)
	if err != nil {
		e.logger.WarnContext(ctx, "avatar subject not resolved", "error", err)
		return d
	}
	email = NormalizeEmail(email)
	if !validEmail(email) {
		return d
	}

	set := []urlargs.Arg{{Key: "s", Value: strconv.Itoa(d.Size)}}
	if d.Default != "" {
		set = append(set, urlargs.Arg{Key: "d", Value: d.Default})
	}
	if d.ForceDefault {
		set = append(set, urlargs.Arg{Key: "f", Value: "y"})
	}
	set = append(set, urlargs.Arg{Key: "r", Value: d.Rating})

	u, err := urlargs.Modify(e.baseURL+e.MimicHash(email), set, nil)
	if err != nil {
		e.logger.WarnContext(ctx, "avatar url not built", "error", err)
		return d
	}
	d.FoundAvatar = true
	d.URL = u
	return d
}

// URL returns the avatar URL of subject, or "" when it has none.
func (e *Engine) URL(ctx context.Context, s Subject, args Args) string {
	return e.Data(ctx, s, args).URL
}
