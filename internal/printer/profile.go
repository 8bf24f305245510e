package printer

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ConnectionType selects how a profile delivers a model
type ConnectionType string

const (
	ConnectionSlicer    ConnectionType = "slicer"
	ConnectionOctoPrint ConnectionType = "octoprint"
	ConnectionKlipper   ConnectionType = "klipper"
	ConnectionPrusaLink ConnectionType = "prusalink"
	ConnectionUSB       ConnectionType = "usb"
)

// ConnectionTypes lists every supported connection type
func ConnectionTypes() []ConnectionType {
	return []ConnectionType{ConnectionSlicer, ConnectionOctoPrint, ConnectionKlipper, ConnectionPrusaLink, ConnectionUSB}
}

// IsREST reports whether the type is a network firmware API
func (c ConnectionType) IsREST() bool {
	_, ok := vendors[c]
	return ok
}

// SlicerType identifies a desktop slicer
type SlicerType string

const (
	SlicerPrusaSlicer SlicerType = "prusaslicer"
	SlicerCura        SlicerType = "cura"
	SlicerOrcaSlicer  SlicerType = "orcaslicer"
	SlicerSuperSlicer SlicerType = "superslicer"
	SlicerSimplify3D  SlicerType = "simplify3d"
	SlicerBambuStudio SlicerType = "bambustudio"
)

// DefaultSlicerArgs is the argument template of new profiles; {file} is the model path
const DefaultSlicerArgs = "--load {file}"

// DefaultBaudRate is the serial speed of new USB profiles
const DefaultBaudRate = 115200

// Profile is a saved printer configuration
type Profile struct {
	ID   string         `json:"id" yaml:"id"`
	Name string         `json:"name" yaml:"name"`
	Type ConnectionType `json:"type" yaml:"type"`

	// slicer
	SlicerType SlicerType `json:"slicerType,omitempty" yaml:"slicerType,omitempty"`
	SlicerPath string     `json:"slicerPath,omitempty" yaml:"slicerPath,omitempty"`
	SlicerArgs string     `json:"slicerArgs,omitempty" yaml:"slicerArgs,omitempty"`

	// octoprint, klipper, prusalink
	APIURL string `json:"apiUrl,omitempty" yaml:"apiUrl,omitempty"`
	APIKey string `json:"apiKey,omitempty" yaml:"apiKey,omitempty"`

	// usb
	Port     string `json:"port,omitempty" yaml:"port,omitempty"`
	BaudRate int    `json:"baudRate,omitempty" yaml:"baudRate,omitempty"`

	AutoStart bool      `json:"autoStart" yaml:"autoStart"`
	Created   time.Time `json:"created" yaml:"created"`
	Modified  time.Time `json:"modified" yaml:"modified"`
}

// NewProfile returns a profile template with defaults filled in
func NewProfile(name string, typ ConnectionType) *Profile {
	if name == "" {
		name = "New Printer"
	}
	if typ == "" {
		typ = ConnectionSlicer
	}
	now := time.Now().UTC()
	return &Profile{
		Name:       name,
		Type:       typ,
		SlicerType: SlicerPrusaSlicer,
		SlicerArgs: DefaultSlicerArgs,
		BaudRate:   DefaultBaudRate,
		Created:    now,
		Modified:   now,
	}
}

// ValidationError lists every problem found in a profile
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid printer profile: " + strings.Join(e.Problems, "; ")
}

// Validate checks the fields required by the connection type
func (p *Profile) Validate() error {
	var problems []string
	blank := func(s string) bool { return strings.TrimSpace(s) == "" }

	if blank(p.Name) {
		problems = append(problems, "Printer name is required")
	}

	switch p.Type {
	case "":
		problems = append(problems, "Connection type is required")
	case ConnectionSlicer:
		if blank(p.SlicerPath) {
			problems = append(problems, "Slicer path is required")
		}
	case ConnectionOctoPrint, ConnectionKlipper, ConnectionPrusaLink:
		if blank(p.APIURL) {
			problems = append(problems, "API URL is required")
		}
		if blank(p.APIKey) {
			problems = append(problems, "API key is required")
		}
	case ConnectionUSB:
		if blank(p.Port) {
			problems = append(problems, "Serial port is required")
		}
	default:
		problems = append(problems, fmt.Sprintf("Unknown connection type %q", p.Type))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Target describes where the profile delivers, for listings
func (p *Profile) Target() string {
	switch p.Type {
	case ConnectionSlicer:
		return p.SlicerPath
	case ConnectionUSB:
		return fmt.Sprintf("%s @ %d", p.Port, p.BaudRate)
	}
	return p.APIURL
}

var defaultSlicerPaths = map[string]map[SlicerType]string{
	"windows": {
		SlicerPrusaSlicer: `C:\Program Files\Prusa3D\PrusaSlicer\prusa-slicer.exe`,
		SlicerCura:        `C:\Program Files\UltiMaker Cura 5.11.0\Cura.exe`,
		SlicerOrcaSlicer:  `C:\Program Files\OrcaSlicer\OrcaSlicer.exe`,
		SlicerSuperSlicer: `C:\Program Files\SuperSlicer\superslicer.exe`,
		SlicerSimplify3D:  `C:\Program Files\Simplify3D\Simplify3D.exe`,
		SlicerBambuStudio: `C:\Program Files\BambuStudio\BambuStudio.exe`,
	},
	"darwin": {
		SlicerPrusaSlicer: "/Applications/PrusaSlicer.app/Contents/MacOS/PrusaSlicer",
		SlicerCura:        "/Applications/Ultimaker Cura.app/Contents/MacOS/cura",
		SlicerOrcaSlicer:  "/Applications/OrcaSlicer.app/Contents/MacOS/OrcaSlicer",
		SlicerSuperSlicer: "/Applications/SuperSlicer.app/Contents/MacOS/SuperSlicer",
		SlicerSimplify3D:  "/Applications/Simplify3D.app/Contents/MacOS/Simplify3D",
		SlicerBambuStudio: "/Applications/BambuStudio.app/Contents/MacOS/BambuStudio",
	},
	"linux": {
		SlicerPrusaSlicer: "/usr/bin/prusa-slicer",
		SlicerCura:        "/usr/bin/cura",
		SlicerOrcaSlicer:  "/usr/bin/orcaslicer",
		SlicerSuperSlicer: "/usr/bin/superslicer",
		SlicerSimplify3D:  "/usr/bin/simplify3d",
		SlicerBambuStudio: "/usr/bin/bambustudio",
	},
}

// alternative Cura install locations on Windows
var curaWindowsFallbacks = []string{
	`C:\Program Files\Ultimaker Cura\Cura.exe`,
	`C:\Program Files\Cura\Cura.exe`,
}

// DefaultSlicerPath returns the usual install path of a slicer on this platform
func DefaultSlicerPath(slicer SlicerType) string {
	return defaultSlicerPathFor(runtime.GOOS, slicer)
}

func defaultSlicerPathFor(goos string, slicer SlicerType) string {
	return defaultSlicerPaths[goos][slicer]
}

// SlicerPathCandidates lists the paths worth probing for a slicer, most likely first
func SlicerPathCandidates(slicer SlicerType) []string {
	var out []string
	if p := DefaultSlicerPath(slicer); p != "" {
		out = append(out, p)
	}
	if runtime.GOOS == "windows" && slicer == SlicerCura {
		out = append(out, curaWindowsFallbacks...)
	}
	return out
}

var slicerInstructions = map[SlicerType]string{
	SlicerPrusaSlicer: "1. Open PrusaSlicer\n2. Go to File → Import → Import STL\n3. Select the downloaded file\n4. Slice and send to printer",
	SlicerCura:        "1. Open Cura\n2. Go to File → Open File(s)\n3. Select the downloaded file\n4. Slice and send to printer",
	SlicerOrcaSlicer:  "1. Open OrcaSlicer\n2. Drag and drop the file into the window\n3. Slice and send to printer",
	SlicerSuperSlicer: "1. Open SuperSlicer\n2. Go to File → Import → Import STL\n3. Select the downloaded file\n4. Slice and send to printer",
	SlicerSimplify3D:  "1. Open Simplify3D\n2. Go to File → Import Models\n3. Select the downloaded file\n4. Prepare and send to printer",
	SlicerBambuStudio: "1. Open Bambu Studio\n2. Drag and drop the file into the window\n3. Slice and send to printer",
}

// SlicerInstructions returns the manual steps for opening a downloaded file
func SlicerInstructions(slicer SlicerType) string {
	if s, ok := slicerInstructions[slicer]; ok {
		return s
	}
	return "Open your slicer and import the downloaded STL file."
}
