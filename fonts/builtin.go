package fonts

import (
	"strings"
	"sync"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
)

// Bundled family names.
const (
	FamilyGo     = "go"
	FamilyGoMono = "gomono"
)

var builtinTTF = map[string]map[string][]byte{
	FamilyGo: {
		"":   goregular.TTF,
		"B":  gobold.TTF,
		"I":  goitalic.TTF,
		"BI": gobolditalic.TTF,
	},
	FamilyGoMono: {
		"":   gomono.TTF,
		"B":  gomonobold.TTF,
		"I":  gomonoitalic.TTF,
		"BI": gomonobolditalic.TTF,
	},
}

// Standard font names are served by the bundled Go fonts, which are
// metric-compatible enough for layout purposes.
var builtinAliases = map[string]string{
	"helvetica": FamilyGo,
	"arial":     FamilyGo,
	"times":     FamilyGo,
	"courier":   FamilyGoMono,
}

var (
	builtinMu    sync.Mutex
	builtinCache = map[string]*Font{}
)

// BuiltinFamily reports the bundled family serving family, if any.
func BuiltinFamily(family string) (string, bool) {
	family = strings.ToLower(family)
	if alias, ok := builtinAliases[family]; ok {
		return alias, true
	}
	_, ok := builtinTTF[family]
	return family, ok
}

// BuiltinData returns the TrueType bytes of a bundled font. style is one of
// "", "B", "I", "BI".
func BuiltinData(family, style string) ([]byte, bool) {
	fam, ok := BuiltinFamily(family)
	if !ok {
		return nil, false
	}
	data, ok := builtinTTF[fam][style]
	return data, ok
}

// Builtin returns the parsed bundled font. Parsed fonts are shared.
func Builtin(family, style string) (*Font, bool) {
	fam, ok := BuiltinFamily(family)
	if !ok {
		return nil, false
	}
	data, ok := builtinTTF[fam][style]
	if !ok {
		return nil, false
	}
	key := fam + "/" + style
	builtinMu.Lock()
	defer builtinMu.Unlock()
	if f, ok := builtinCache[key]; ok {
		return f, true
	}
	f, err := LoadTrueType(key, data)
	if err != nil {
		return nil, false
	}
	builtinCache[key] = f
	return f, true
}
