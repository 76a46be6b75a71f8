package sandbox

import (
	"fmt"
	"regexp"
)

// Static validation runs on script text before it ever reaches the VM.
// Fail-closed: a match anywhere in the source (strings and comments
// included) rejects the script without any evaluation attempt. The dynamic
// environment already lacks these capabilities; the static pass keeps
// hostile scripts from even starting.

var (
	// Escape hatches into code loading or the VM's own internals.
	denyAlways = regexp.MustCompile(`\b(dofile|loadfile|loadstring|load|collectgarbage|getmetatable|setmetatable|rawset|rawget)\s*\(`)

	// Host-facing libraries, denied in any position.
	denyLibs = regexp.MustCompile(`\b(os|io|debug|package)\s*[.\[]`)

	denyGlobalsTable = regexp.MustCompile(`\b_G\b`)

	// Module imports are only meaningful in module mode, where require is
	// rebound to the supplied module map.
	denyRequire = regexp.MustCompile(`\brequire\s*[(\s"']`)
)

// ValidateScript checks plain-script source.
func ValidateScript(src string) error {
	if err := validateCommon(src); err != nil {
		return err
	}
	if m := denyRequire.FindString(src); m != "" {
		return fmt.Errorf("script rejected: require is not available outside module mode")
	}
	return nil
}

// ValidateModule checks module-mode source, where require resolves against
// the supplied module map only.
func ValidateModule(src string) error {
	return validateCommon(src)
}

func validateCommon(src string) error {
	if m := denyAlways.FindString(src); m != "" {
		return fmt.Errorf("script rejected: disallowed call %q", m)
	}
	if m := denyLibs.FindString(src); m != "" {
		return fmt.Errorf("script rejected: disallowed library access %q", m)
	}
	if denyGlobalsTable.MatchString(src) {
		return fmt.Errorf("script rejected: access to the globals table is not allowed")
	}
	return nil
}
