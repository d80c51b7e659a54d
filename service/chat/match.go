package chat

import (
	"fmt"
	"strings"

	"github.com/ailist-app/ailist-server/cmd/models"
)

// SearchIntent is the service category inferred from a chat message.
type SearchIntent struct {
	Category string `json:"category"`
	Query    string `json:"query"`
}

var categoryKeywords = map[string][]string{
	"electrician": {"electrician", "electric", "wiring", "power", "light", "fan", "switch"},
	"plumber":     {"plumber", "plumbing", "pipe", "water", "tap", "leak", "drain", "toilet"},
	"carpenter":   {"carpenter", "furniture", "wood", "cabinet", "door", "table", "wardrobe"},
	"painter":     {"painter", "painting", "paint", "wall", "color"},
	"ac-repair":   {"ac", "air conditioner", "cooling", "hvac"},
	"cleaning":    {"cleaning", "cleaner", "maid", "housekeeping"},
	"tutoring":    {"tutor", "teacher", "coaching", "tuition"},
	"beauty":      {"beauty", "salon", "haircut", "makeup"},
	"mechanic":    {"mechanic", "car", "bike", "vehicle", "garage"},
	"photography": {"photographer", "photo", "video", "wedding", "studio"},
	"vfx":         {"vfx", "visual effects", "animation", "film", "video editing", "film services", "video"},
}

// ExtractSearchIntent maps a message to a known service category, or
// nil when nothing matches.
func ExtractSearchIntent(message string) *SearchIntent {
	lower := strings.ToLower(message)
	for category, keywords := range categoryKeywords {
		for _, keyword := range keywords {
			if strings.Contains(lower, keyword) {
				return &SearchIntent{Category: category, Query: message}
			}
		}
	}
	return nil
}

// MatchProfessionals returns every professional whose searchable text
// contains at least one word of the message.
func MatchProfessionals(message string, professionals []models.Professional) []models.Professional {
	words := searchWords(message)
	if len(words) == 0 {
		return nil
	}

	var matches []models.Professional
	for _, p := range professionals {
		text := searchableText(p)
		for _, word := range words {
			if strings.Contains(text, word) {
				matches = append(matches, p)
				break
			}
		}
	}
	return matches
}

func searchWords(message string) []string {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(message)) {
		if len(w) >= 2 {
			words = append(words, w)
		}
	}
	return words
}

func searchableText(p models.Professional) string {
	parts := []string{
		p.DisplayName,
		p.Profession,
		p.Description,
		strings.Join(p.Services, " "),
		p.Area,
		p.City,
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// BuildLocalResponse renders the non-AI reply used for free-tier
// users, exhausted quotas, and AI outages.
func BuildLocalResponse(message string, matches []models.Professional, city string, limitReached bool) string {
	if limitReached {
		base := "🔒 You've reached your daily AI chat limit.\n\nUpgrade to Premium for unlimited AI-powered search!"
		if len(matches) > 0 {
			return fmt.Sprintf("%s\n\nMeanwhile, I found %d professional(s) matching your search.", base, len(matches))
		}
		return base
	}

	if len(matches) == 0 {
		return fmt.Sprintf("I couldn't find any matching professionals in %s for %q.\n\n"+
			"Try searching for:\n• Electrician\n• Plumber\n• Carpenter\n• Painter\n• AC Repair\n• Cleaning\n• Tutor\n• VFX",
			city, message)
	}

	plural := ""
	if len(matches) > 1 {
		plural = "s"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "I found %d professional%s for you:\n\n", len(matches), plural)

	top := matches
	if len(top) > 3 {
		top = top[:3]
	}
	for _, p := range top {
		fmt.Fprintf(&b, "**%s**\n", p.DisplayName)
		fmt.Fprintf(&b, "📍 %s, %s\n", p.Area, p.City)
		if p.Rating > 0 {
			fmt.Fprintf(&b, "⭐ %g/5 (%d reviews)\n", p.Rating, p.TotalReviews)
		}
		if p.IsVerified {
			b.WriteString("✅ Verified\n")
		}
		b.WriteString("\n")
	}

	if len(matches) > 3 {
		fmt.Fprintf(&b, "...and %d more available.", len(matches)-3)
	}
	return b.String()
}

// BuildProfessionalsContext formats the top professionals for the AI
// system prompt.
func BuildProfessionalsContext(professionals []models.Professional) string {
	if len(professionals) == 0 {
		return "No professionals currently available."
	}

	top := professionals
	if len(top) > 30 {
		top = top[:30]
	}

	lines := make([]string, 0, len(top))
	for i, p := range top {
		services := "N/A"
		if len(p.Services) > 0 {
			services = strings.Join(p.Services, ", ")
		}
		area := p.Area
		if area == "" {
			area = "N/A"
		}
		verified := "No"
		if p.IsVerified {
			verified = "Yes"
		}
		lines = append(lines, fmt.Sprintf(
			"%d. %s (%s)\n   - Location: %s, %s\n   - Rating: %g/5 (%d reviews)\n   - Experience: %d years\n   - Services: %s\n   - Verified: %s",
			i+1, p.DisplayName, p.Profession, area, p.City, p.Rating, p.TotalReviews, p.ExperienceYears, services, verified))
	}
	return strings.Join(lines, "\n\n")
}

// ExtractMentionedProfessionals finds professionals the AI reply named
// by display-name containment.
func ExtractMentionedProfessionals(aiResponse string, professionals []models.Professional) []uint {
	lower := strings.ToLower(aiResponse)
	seen := make(map[uint]bool)
	var mentioned []uint

	for _, p := range professionals {
		name := strings.ToLower(strings.TrimSpace(p.DisplayName))
		if len(name) < 3 {
			continue
		}
		if strings.Contains(lower, name) && !seen[p.ID] {
			seen[p.ID] = true
			mentioned = append(mentioned, p.ID)
		}
	}
	return mentioned
}
