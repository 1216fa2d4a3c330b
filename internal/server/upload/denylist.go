package upload

// Extensions that must never be stored, regardless of category. The
// archive list is the subset enforced inside uploaded zip containers,
// extended with script and library formats that only matter once
// extracted on a victim machine.
var dangerousExtensions = map[string]struct{}{
	"php": {}, "php3": {}, "php4": {}, "php5": {}, "phtml": {},
	"asp": {}, "aspx": {}, "jsp": {}, "js": {}, "vbs": {},
	"bat": {}, "cmd": {}, "com": {}, "exe": {}, "scr": {},
}

var dangerousArchiveExtensions = map[string]struct{}{
	"php": {}, "asp": {}, "jsp": {}, "exe": {}, "bat": {}, "cmd": {},
	"sh": {}, "dll": {},
}

// ExtensionAllowed reports whether a filename's extension is outside the
// denylist.
func ExtensionAllowed(name string) bool {
	_, bad := dangerousExtensions[Extension(name)]
	return !bad
}

func archiveEntryAllowed(name string) bool {
	_, bad := dangerousArchiveExtensions[Extension(name)]
	return !bad
}
