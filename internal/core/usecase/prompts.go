package usecase

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kirillkom/forge3d/internal/core/domain"
)

func buildAdvicePrompt(filename string, stats domain.MeshStatistics) string {
	b := stats.Bounds
	d := stats.Dimensions
	var sb strings.Builder
	fmt.Fprintf(&sb, "I need specific 3D printing advice for this OBJ model: %q\n\n", filename)
	sb.WriteString("OBJ File Analysis Results:\n")
	fmt.Fprintf(&sb, "- Vertices: %d\n", stats.VertexCount)
	fmt.Fprintf(&sb, "- Faces: %d\n", stats.FaceCount)
	fmt.Fprintf(&sb, "- Dimensions: Width=%.2fmm, Height=%.2fmm, Depth=%.2fmm\n", d.Width, d.Height, d.Depth)
	fmt.Fprintf(&sb, "- Bounding Box Volume: %.2f cubic mm\n", stats.BoundingVolume)
	fmt.Fprintf(&sb, "- Min/Max coordinates: X(%.2f to %.2f), Y(%.2f to %.2f), Z(%.2f to %.2f)\n",
		b.MinX, b.MaxX, b.MinY, b.MaxY, b.MinZ, b.MaxZ)
	fmt.Fprintf(&sb, "- Material/Groups: %d\n", stats.GroupCount)
	fmt.Fprintf(&sb, "- Has Texture Coordinates: %s\n", yesNo(stats.HasTextureCoordinates))
	fmt.Fprintf(&sb, "- Has Normals: %s\n\n", yesNo(stats.HasNormals))
	sb.WriteString(`Based on these numbers, answer with these sections:
1. Printability: is the model size reasonable for a typical FDM printer bed (220x220x250mm)? Suggest a scale factor if not.
2. Orientation: the best orientation on the bed and why.
3. Supports: whether supports are likely needed and where.
4. Settings: layer height, infill percentage, wall count and material.
5. Risks: mesh issues suggested by the counts (missing normals, very high or very low face density).
Keep each section short and concrete.`)
	return sb.String()
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

var refineInstructions = map[domain.RefineTarget]string{
	domain.RefineCAD: `Analyze the following description and determine if CAD is the best format for creating this object. If it is, explain why. If not, explain why another format (e.g., 3D Mesh) might be better.

Then, refine the input into a structured CAD modeling prompt using the following best practices:
Describe an object that can be modeled in CAD with simple operations, being as explicit as possible, using measures if possible and focusing on single, self-contained items rather than assemblies. Describe it as operations in a CAD program. Do not build very long prompts.`,
	domain.RefineMesh: `Analyze the following description and determine if a 3D Mesh is the best format for creating this object. If it is, explain why. If not, explain why another format (e.g., CAD) might be better.

Then, refine the input into a structured 3D Mesh modeling prompt based on the best possible representation.
- Tailor the style to its purpose (e.g., low-poly for games, high-precision for manufacturing).
- Keep prompts clear and concise (1-2 sentences work best).
- Indicate dimensions and proportions using precise units (mm, cm, m).`,
	domain.RefineImage: `Refine the following text into a structured and detailed prompt for AI image generation.

Ensure the refined prompt:
- Clearly describes the subject and composition.
- Specifies lighting, colors and atmosphere.
- Defines style or artistic approach (e.g., photorealistic, cyberpunk, watercolor).
- Avoids vague concepts like "beautiful" or "amazing"; describe specific details instead.`,
}

func buildRefinePrompt(text string, target domain.RefineTarget) (string, bool) {
	instructions, ok := refineInstructions[target]
	if !ok {
		return "", false
	}

	var sb strings.Builder
	sb.WriteString(instructions)
	sb.WriteString("\n\nInput:\n")
	fmt.Fprintf(&sb, "%q\n\n", text)
	sb.WriteString("Respond with this exact format:\n---\n")
	if target != domain.RefineImage {
		sb.WriteString("Suitability: [is/is not the best format because ...]\n")
	}
	sb.WriteString("Refined Prompt: \"[improved prompt]\"\n---")
	return sb.String(), true
}

var (
	suitabilityPattern = regexp.MustCompile(`(?s)Suitability:\s*"?(.+?)"?\s*Refined Prompt:`)
	refinedPattern     = regexp.MustCompile(`(?s)Refined Prompt:\s*"?(.+?)"?\s*(?:---|$)`)
)

// parseRefinement extracts both sections of the model reply. The trailing
// separator is optional; a missing Refined Prompt section is an error.
func parseRefinement(reply string) (suitability, refined string, ok bool) {
	m := refinedPattern.FindStringSubmatch(reply)
	if m == nil {
		return "", "", false
	}
	refined = strings.TrimSpace(m[1])
	if refined == "" {
		return "", "", false
	}
	if s := suitabilityPattern.FindStringSubmatch(reply); s != nil {
		suitability = strings.TrimSpace(s[1])
	}
	return suitability, refined, true
}

var describeInstructions = map[domain.RefineTarget]string{
	domain.RefineCAD: `Describe the main object in this image explicitly and concisely for CAD modeling.
- Use clear geometric shapes (cylinders, cubes, spheres).
- Include explicit dimensions or realistic estimates.
- Focus only on one single, standalone object.
- Keep your description short and precise.`,
	domain.RefineMesh:  `Describe the main element in this image for 3D mesh modeling, clearly identifying visual details and focusing explicitly on one object. Keep the description concise but detailed enough for modeling.`,
	domain.RefineImage: `Provide a detailed description of this image, including the main subjects, composition, colors, lighting, and artistic style, intended to be used as a prompt for AI image generation.`,
}

const generalDescribeInstruction = "Describe this picture in detail."

// buildDescribeInstruction falls back to a general description for an empty target.
func buildDescribeInstruction(target domain.RefineTarget) (string, bool) {
	if target == "" {
		return generalDescribeInstruction, true
	}
	instruction, ok := describeInstructions[target]
	return instruction, ok
}
