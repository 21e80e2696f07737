package highlights

import (
	"fmt"
	"strings"
)

const systemPrompt = "You are an expert video content analyzer. Analyze videos and identify the most engaging moments."

const analysisPrompt = `Analyze this YouTube video and identify the most engaging moments:

Title: %s
Duration: %d seconds
Description: %s
%s
Please identify 3-5 highlight segments in JSON format with this structure:
{
  "highlights": [
    {
      "startTime": 0,
      "endTime": 30,
      "type": "funny|emotional|motivational|quote|visual|action",
      "confidence": 0.95,
      "summary": "Brief description of the highlight",
      "keywords": ["keyword1", "keyword2"]
    }
  ],
  "summary": "Overall video summary",
  "keywords": ["main", "keywords"],
  "hashtags": ["#hashtag1", "#hashtag2"]
}

Focus on moments that would work well as short clips (15-90 seconds).`

// BuildPrompt renders the user message for one video. The transcript line is
// omitted entirely when there is no transcript.
func BuildPrompt(req Request) string {
	var transcript string
	if t := strings.TrimSpace(req.Transcript); t != "" {
		transcript = "Transcript: " + t + "\n"
	}
	return fmt.Sprintf(analysisPrompt, req.Title, req.Duration, req.Description, transcript)
}
