package printer

import (
	"encoding/json"
	"mime/multipart"
)

// Vendor describes one firmware REST API. The three supported vendors differ
// only in these fields, so a single Client serves all of them.
type Vendor struct {
	Name        string
	UploadPath  string
	VersionPath string
	// StartPath is called after a successful upload when the profile asks
	// for auto start and the vendor cannot start from the upload form
	StartPath string
	// OptionalKey allows an empty API key (Moonraker without auth)
	OptionalKey bool
	// UploadFields adds vendor specific form fields next to the file
	UploadFields func(w *multipart.Writer, p *Profile) error
	// UploadedPath extracts the stored file path from the upload response for StartPath
	UploadedPath func(body []byte) string
	// VersionText extracts a version string from the VersionPath response
	VersionText func(body []byte) string
}

const apiKeyHeader = "X-Api-Key"

func printField(w *multipart.Writer, p *Profile) error {
	if p.AutoStart {
		return w.WriteField("print", "true")
	}
	return nil
}

func serverVersion(body []byte) string {
	var v struct {
		Server string `json:"server"`
	}
	if json.Unmarshal(body, &v) != nil {
		return ""
	}
	return v.Server
}

var vendors = map[ConnectionType]Vendor{
	ConnectionOctoPrint: {
		Name:         "OctoPrint",
		UploadPath:   "/api/files/local",
		VersionPath:  "/api/version",
		UploadFields: printField,
		VersionText:  serverVersion,
	},
	ConnectionPrusaLink: {
		Name:         "PrusaLink",
		UploadPath:   "/api/files/local",
		VersionPath:  "/api/version",
		UploadFields: printField,
		VersionText:  serverVersion,
	},
	ConnectionKlipper: {
		Name:        "Klipper",
		UploadPath:  "/server/files/upload",
		VersionPath: "/server/info",
		StartPath:   "/printer/print/start",
		OptionalKey: true,
		UploadFields: func(w *multipart.Writer, _ *Profile) error {
			return w.WriteField("root", "gcodes")
		},
		UploadedPath: func(body []byte) string {
			var v struct {
				Item struct {
					Path string `json:"path"`
				} `json:"item"`
				Result struct {
					Item struct {
						Path string `json:"path"`
					} `json:"item"`
				} `json:"result"`
			}
			if json.Unmarshal(body, &v) != nil {
				return ""
			}
			if v.Item.Path != "" {
				return v.Item.Path
			}
			return v.Result.Item.Path
		},
		VersionText: func(body []byte) string {
			var v struct {
				Result struct {
					MoonrakerVersion string `json:"moonraker_version"`
				} `json:"result"`
			}
			if json.Unmarshal(body, &v) != nil {
				return ""
			}
			return v.Result.MoonrakerVersion
		},
	},
}

// LookupVendor returns the REST vendor record for a connection type
func LookupVendor(t ConnectionType) (Vendor, bool) {
	v, ok := vendors[t]
	return v, ok
}
