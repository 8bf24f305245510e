package inspect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/philipparndt/modelforge/internal/models"
	"github.com/philipparndt/modelforge/internal/ui"
)

// ModelPrinter handles printing model details and the 3MF object hierarchy
type ModelPrinter struct{}

// NewModelPrinter creates a new ModelPrinter
func NewModelPrinter() *ModelPrinter {
	return &ModelPrinter{}
}

// PrintReport prints dimensions, counts and color
func (p *ModelPrinter) PrintReport(r *Report) {
	s := r.Stats
	ui.PrintKeyValue("Name", r.Name)
	ui.PrintKeyValue("Format", strings.ToUpper(string(r.Format)))
	ui.PrintKeyValue("Vertices", strconv.Itoa(s.Vertices))
	ui.PrintKeyValue("Faces", strconv.Itoa(s.Triangles))
	ui.PrintKeyValue("Dimensions", fmt.Sprintf("%.2f × %.2f × %.2f mm (W × D × H)",
		s.Bounds.Width(), s.Bounds.Depth(), s.Bounds.Height()))
	ui.PrintKeyValue("Volume", fmt.Sprintf("%.2f mm³", s.Volume))
	ui.PrintKeyValue("Surface area", fmt.Sprintf("%.2f mm²", s.SurfaceArea))
	ui.PrintKeyValue("Color", ui.Swatch(r.Color.Hex()))
}

// ParseTransformOffset extracts X, Y, Z offset from a transform matrix string
// Transform format: "m11 m12 m13 m21 m22 m23 m31 m32 m33 x y z"
func ParseTransformOffset(transform string) (x, y, z float64, ok bool) {
	parts := strings.Fields(transform)
	if len(parts) != 12 {
		return 0, 0, 0, false
	}

	x, errX := strconv.ParseFloat(parts[9], 64)
	y, errY := strconv.ParseFloat(parts[10], 64)
	z, errZ := strconv.ParseFloat(parts[11], 64)

	if errX != nil || errY != nil || errZ != nil {
		return 0, 0, 0, false
	}

	return x, y, z, true
}

// PrintDocument prints metadata, build items and the object hierarchy of a 3MF model
func (p *ModelPrinter) PrintDocument(model *models.Model) {
	if len(model.Metadata) > 0 {
		ui.PrintHeader("Metadata:")
		for _, meta := range model.Metadata {
			ui.PrintStep(fmt.Sprintf("%s: %s", meta.Name, meta.Value))
		}
	}

	ui.PrintHeader("Build Plate Items:")
	if len(model.Build.Items) == 0 {
		ui.PrintStep("No items on build plate")
	}
	for idx, item := range model.Build.Items {
		printable := "yes"
		if item.Printable == "0" {
			printable = "no"
		}
		offset := ""
		if x, y, z, ok := ParseTransformOffset(item.Transform); ok && (x != 0 || y != 0 || z != 0) {
			offset = fmt.Sprintf(" [offset: %.2f, %.2f, %.2f]", x, y, z)
		}
		ui.PrintStep(fmt.Sprintf("%d. Object ID %s: %s (printable: %s)%s",
			idx+1, item.ObjectID, objectName(model, item.ObjectID), printable, offset))
	}

	ui.PrintHeader("Objects in Model:")
	p.PrintObjectHierarchy(model)
}

// PrintObjectHierarchy prints top-level objects and their components
func (p *ModelPrinter) PrintObjectHierarchy(model *models.Model) {
	// Track which objects are components (not top-level)
	componentIDs := make(map[string]bool)
	for _, obj := range model.Resources.Objects {
		if obj.Components != nil {
			for _, comp := range obj.Components.Component {
				componentIDs[comp.ObjectID] = true
			}
		}
	}

	objectCount := 0
	for idx := range model.Resources.Objects {
		obj := &model.Resources.Objects[idx]
		if obj.Components == nil && componentIDs[obj.ID] {
			continue
		}
		objectCount++
		p.printObject(model, obj)
	}

	if objectCount == 0 {
		ui.PrintStep("No objects found")
	}
}

func (p *ModelPrinter) printObject(model *models.Model, obj *models.Object) {
	name := displayName(obj)
	colorInfo := ""
	if hex := displayColor(model, obj); hex != "" {
		colorInfo = " " + ui.Swatch(hex)
	}

	if obj.Mesh != nil {
		ui.PrintStep(fmt.Sprintf("• %s (ID: %s) - %d vertices, %d triangles%s", name, obj.ID,
			len(obj.Mesh.Vertices.Vertex), len(obj.Mesh.Triangles.Triangle), colorInfo))
		return
	}

	if obj.Components == nil {
		ui.PrintStep(fmt.Sprintf("• %s (ID: %s)%s", name, obj.ID, colorInfo))
		return
	}

	ui.PrintStep(fmt.Sprintf("• %s (ID: %s) - %d part(s)%s", name, obj.ID, len(obj.Components.Component), colorInfo))
	for _, comp := range obj.Components.Component {
		offsetInfo := ""
		if x, y, z, ok := ParseTransformOffset(comp.Transform); ok && (x != 0 || y != 0 || z != 0) {
			offsetInfo = fmt.Sprintf(" [offset: %.2f, %.2f, %.2f]", x, y, z)
		}
		target := objectName(model, comp.ObjectID)
		if comp.Path != "" {
			target = comp.Path
		}
		ui.PrintStep(fmt.Sprintf("  - %s (ID: %s)%s", target, comp.ObjectID, offsetInfo))
	}
}

func objectName(model *models.Model, objectID string) string {
	for i := range model.Resources.Objects {
		if model.Resources.Objects[i].ID == objectID {
			return displayName(&model.Resources.Objects[i])
		}
	}
	return "(not found)"
}

func displayName(obj *models.Object) string {
	if obj.Name != "" {
		return obj.Name
	}
	return "(unnamed)"
}

// displayColor returns the #RRGGBB color assigned through basematerials, if any
func displayColor(model *models.Model, obj *models.Object) string {
	if obj.PID == "" {
		return ""
	}
	index, err := strconv.Atoi(obj.PIndex)
	if err != nil {
		index = 0
	}
	for _, group := range model.Resources.BaseMaterials {
		if group.ID == obj.PID && index >= 0 && index < len(group.Bases) {
			hex := group.Bases[index].DisplayColor
			if len(hex) > 7 {
				hex = hex[:7]
			}
			return hex
		}
	}
	return ""
}
