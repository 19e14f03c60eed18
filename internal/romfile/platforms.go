package romfile

// defaultExtensions maps ROM file extensions (without dot, lower case) to
// platform keys. Config may override or extend these.
var defaultExtensions = map[string]string{
	"nes": "nes",
	"fds": "nes",
	"sfc": "snes",
	"smc": "snes",
	"n64": "n64",
	"z64": "n64",
	"v64": "n64",
	"gb":  "gb",
	"gbc": "gbc",
	"gba": "gba",
	"nds": "nds",
	"md":  "genesis",
	"gen": "genesis",
	"smd": "genesis",
	"sms": "mastersystem",
	"gg":  "gamegear",
	"32x": "sega32x",
	"pce": "turbografx16",
	"a26": "atari2600",
	"a78": "atari7800",
	"lnx": "lynx",
	"ngp": "neogeopocket",
	"ngc": "neogeopocket",
	"ws":  "wonderswan",
	"wsc": "wonderswan",
	"iso": "psx",
	"cue": "psx",
	"chd": "psx",
	"vb":  "virtualboy",
	"int": "intellivision",
	"col": "colecovision",
}

// platformIDs maps platform keys to remote metadata API platform identifiers.
var platformIDs = map[string]int{
	"nes":           18,
	"snes":          19,
	"n64":           4,
	"gb":            33,
	"gbc":           22,
	"gba":           24,
	"nds":           20,
	"genesis":       29,
	"mastersystem":  64,
	"gamegear":      35,
	"sega32x":       30,
	"turbografx16":  86,
	"atari2600":     59,
	"atari7800":     60,
	"lynx":          61,
	"neogeopocket":  119,
	"wonderswan":    57,
	"psx":           7,
	"virtualboy":    87,
	"intellivision": 67,
	"colecovision":  68,
}

// PlatformID returns the metadata API platform identifier for a platform key,
// or 0 when the platform is unknown (queries then go unscoped).
func PlatformID(platformKey string) int {
	return platformIDs[platformKey]
}

// PlatformForExtension resolves a file extension to a platform key, consulting
// overrides before the built-in table. The extension is matched without its
// leading dot, case-insensitively.
func PlatformForExtension(ext string, overrides map[string]string) (string, bool) {
	if key, ok := overrides[ext]; ok {
		return key, true
	}
	key, ok := defaultExtensions[ext]
	return key, ok
}
