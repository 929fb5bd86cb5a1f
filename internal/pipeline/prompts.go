package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	t "archigen/internal/types"
)

// ImageAspectRatio is the fixed canvas ratio requested for every render.
const ImageAspectRatio = "4:3"

const renderConstraints = " Render strictly as a rectangular architectural floor plan. " +
	"Do not use circular shapes, do not use a circular vignette, do not use a round frame. " +
	"The image must fill the rectangular canvas. High quality, blueprint aesthetic, precise lines, " +
	"white background, high contrast, technical drawing with dimension lines and room labels clearly visible. " +
	"Aspect ratio " + ImageAspectRatio + "."

// BedroomNames returns the labels for n bedrooms: the first is the master
// bedroom, the rest are numbered from 2.
func BedroomNames(n int) []string {
	if n < 1 {
		return nil
	}
	names := make([]string, 0, n)
	names = append(names, "Master Bedroom")
	for i := 2; i <= n; i++ {
		names = append(names, "Bedroom "+strconv.Itoa(i))
	}
	return names
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func quoteAll(ss []string) string {
	q := make([]string, len(ss))
	for i, s := range ss {
		q[i] = strconv.Quote(s)
	}
	return strings.Join(q, ", ")
}

// AnalysisPrompt builds the architect instruction for the analysis stage.
func AnalysisPrompt(req t.Requirements) string {
	area := strconv.FormatFloat(req.TotalArea, 'f', -1, 64)
	var b strings.Builder
	b.WriteString("Act as a Senior Architect. Design a residential floor plan based on these requirements:\n")
	fmt.Fprintf(&b, "- Country: %s (Apply local building codes/bylaws strictly)\n", req.Country)
	fmt.Fprintf(&b, "- Total Area: %s sq ft\n", area)
	fmt.Fprintf(&b, "- Bedrooms: %d (STRICTLY enforce this exact number)\n", req.Rooms)
	fmt.Fprintf(&b, "- Living Hall: %s\n", yesNo(req.HasHall))
	fmt.Fprintf(&b, "- Kitchen: %s\n", yesNo(req.HasKitchen))
	fmt.Fprintf(&b, "- Balcony: %s\n", yesNo(req.HasBalcony))
	fmt.Fprintf(&b, "- Notes: %s\n\n", strings.TrimSpace(req.AdditionalNotes))

	b.WriteString("CRITICAL RULES FOR LAYOUT:\n")
	fmt.Fprintf(&b, "1. EXACT BEDROOM COUNT: You must provide EXACTLY %d bedrooms. Do NOT add extra bedrooms even if the area is large.\n", req.Rooms)
	fmt.Fprintf(&b, "2. SURPLUS AREA: If %s sq ft is generous for %d bedrooms, do NOT create more bedrooms. Instead, assign the extra space to:\n", area, req.Rooms)
	b.WriteString("   - A dedicated Storage Room or Pantry\n")
	b.WriteString("   - A Utility / Laundry Room\n")
	b.WriteString("   - A larger Living/Dining Hall\n")
	b.WriteString("   - An Open Space / Courtyard\n")
	b.WriteString("3. SHAPE: The outer perimeter must be STRICTLY RECTANGULAR or SQUARE.\n")
	b.WriteString("4. NAMING CONVENTION: For multiple rooms of the same type, use standard architectural numbering.\n")
	b.WriteString("   - Primary bedroom: \"Master Bedroom\"\n")
	b.WriteString("   - Secondary bedrooms: \"Bedroom 2\", \"Bedroom 3\", etc.\n")
	fmt.Fprintf(&b, "   - For this plan name the bedrooms exactly: %s\n\n", quoteAll(BedroomNames(req.Rooms)))

	b.WriteString("Output a JSON object with the following structure:\n")
	b.WriteString(`1. "visualPrompt": A highly detailed, descriptive paragraph describing the visual layout for an image generation AI. `)
	b.WriteString(`Mention "2D architectural floor plan top view", "white background", "black walls". `)
	b.WriteString(`Explicitly mention that the building perimeter must be STRICTLY RECTANGULAR or SQUARE; no circular, curved, or irregular organic shapes, and the layout must be orthogonal. `)
	b.WriteString(`Explicitly mention visible dimension lines and numeric measurements for each room (e.g., '12x14', '10x10'). `)
	fmt.Fprintf(&b, `STATE CLEARLY: "The plan features exactly %d bedrooms". `, req.Rooms)
	b.WriteString("Include furniture placements (bed, sofa, dining table), window locations, and door swings. ")
	b.WriteString("It must be clean, professional, and look like a technical architectural blueprint.\n")
	b.WriteString(`2. "distributionLogic": A short explanation of why the layout is arranged this way.` + "\n")
	b.WriteString(`3. "roomDimensions": An array of objects { "name", "width", "length", "area", "notes" }.` + "\n")
	b.WriteString(`4. "totalUtilizedArea": Number (Sum of all room areas).` + "\n")
	b.WriteString(`5. "efficiencyScore": Number (0-100, representing usable space ratio).` + "\n")
	return b.String()
}

// ImagePrompt appends the fixed rendering constraints to a visual description.
func ImagePrompt(visual string) string {
	return strings.TrimSpace(visual) + renderConstraints
}

// ComplianceCategories are the five areas every audit must cover.
var ComplianceCategories = []string{
	"Room Shapes & Aspect Ratios (Rectangular vs Irregular)",
	"Ventilation & Window Placement",
	"Door Swings & Egress",
	"General Circulation Space",
	"Furniture Clearance",
}

// CompliancePrompt builds the inspector instruction for the vision audit.
func CompliancePrompt(req t.Requirements) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Act as a Lead Building Inspector for %s.\n", req.Country)
	b.WriteString("Analyze this architectural floor plan image strictly against local building codes (e.g., NBC for India, IRC/IBC for USA, Building Regs for UK).\n\n")
	fmt.Fprintf(&b, "Look at the image and identify exactly %d specific compliance points regarding:\n", len(ComplianceCategories))
	for i, c := range ComplianceCategories {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c)
	}
	b.WriteString("\nOutput a JSON array of objects with keys: \"rule\" (string name of the code), ")
	b.WriteString("\"status\" (\"Compliant\", \"Warning\", \"Non-Compliant\"), and \"details\" (string description of what is seen in the image).\n")
	b.WriteString("Make the details specific to the image provided.\n")
	return b.String()
}
