// Package sandbox executes untrusted script text inside an isolated
// gopher-lua VM. Scripts never hold a reference to engine state: every
// capability call appends a typed operation to an accumulator, and the host
// applies the harvested operations through the same mutation paths as any
// other caller.
package sandbox

// Operation types the capability surface can produce.
const (
	OpSetRule            = "setRule"
	OpSetAbility         = "setAbility"
	OpRemoveEntities     = "removeEntities"
	OpSetAudio           = "setAudio"
	OpSetMusic           = "setMusic"
	OpSetEntityScript    = "setEntityScript"
	OpSetBackgroundTheme = "setBackgroundTheme"
	OpSetRenderFilters   = "setRenderFilters"
	OpReloadAssets       = "reloadAssets"
	OpRunScript          = "runScript"
)

// Op is one structured mutation request. This is the only unit of change
// the host ever applies on behalf of sandboxed code, which makes every
// sandbox-caused mutation auditable.
type Op struct {
	Type    string         `json:"type"`
	Path    string         `json:"path,omitempty"`
	Value   any            `json:"value,omitempty"`
	Ability string         `json:"ability,omitempty"`
	Active  bool           `json:"active,omitempty"`
	Filter  map[string]any `json:"filter,omitempty"`
	Name    string         `json:"name,omitempty"`
	Code    string         `json:"code,omitempty"`
}

// ExecResult is what one script execution yields: harvested operations,
// captured console output, and the script's return value (if any).
type ExecResult struct {
	Ops    []Op     `json:"ops"`
	Logs   []string `json:"logs"`
	Output any      `json:"output,omitempty"`
}
