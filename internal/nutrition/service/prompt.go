package service

import (
	"fmt"
	"strings"

	"github.com/smallbiznis/snapcount/internal/nutrition/domain"
)

const imageInstruction = `Analyze this food image and provide nutritional information.
Identify the food, estimate the portion size shown, and estimate its nutritional content.

Return ONLY a JSON object with exactly these fields:
{
  "foodName": "name of the food",
  "calories": number,
  "protein": number (grams),
  "carbs": number (grams),
  "fat": number (grams),
  "sugar": number (grams),
  "confidence": number between 0 and 1
}

If you cannot identify any food in the image, return ONLY:
{"error": "` + domain.MessageNoFoodInImage + `"}

Do not guess values for an image without food.
Be as accurate as possible with portion size estimation. Consider typical serving sizes.`

const textInstruction = `Based on this food description: "%s"

Estimate the nutritional content for a typical serving of this food.
Assume a typical serving size unless the description states an amount.

Return ONLY a JSON object with exactly these fields:
{
  "foodName": "%s",
  "calories": number,
  "protein": number (grams),
  "carbs": number (grams),
  "fat": number (grams),
  "sugar": number (grams),
  "confidence": number between 0 and 1
}

Text descriptions are less precise than visual analysis, so confidence is typically 0.7 for text descriptions.
If the description is not a food, return ONLY:
{"error": "Could not identify food from description"}`

// buildPrompt renders the model instruction for the request's channel.
func buildPrompt(req domain.Request) domain.Prompt {
	if req.Channel() == domain.ChannelImage {
		return domain.Prompt{Text: imageInstruction, Image: req.Image}
	}
	description := strings.TrimSpace(req.Description)
	quoted := escapeQuotes(description)
	return domain.Prompt{Text: fmt.Sprintf(textInstruction, quoted, quoted)}
}

// escapeQuotes keeps the description from closing the quoted prompt literal.
func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}
