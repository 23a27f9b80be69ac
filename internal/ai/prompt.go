package ai

import "strings"

// removalSystemPrompt frames the advisory task. The model sees only the
// candidate list and must answer with verbatim lines; anything it invents
// fails the intersection check downstream and removes nothing.
const removalSystemPrompt = `You are an editor reviewing headlines for a personal daily news digest. You will receive an instruction and a list of headlines. Reply with ONLY the headlines that should be removed per the instruction, one per line, copied exactly as given. If none should be removed, reply with the single word NONE.`

// BuildRemovalPrompt renders the advisory instruction and candidate
// headlines as the user message for a removal request.
func BuildRemovalPrompt(instruction string, candidates []string) string {
	var b strings.Builder
	b.WriteString(instruction)
	b.WriteString("\n\nHere are today's news headlines:\n")
	for _, c := range candidates {
		b.WriteString("- ")
		b.WriteString(c)
		b.WriteString("\n")
	}
	return b.String()
}

// ParseRemovalResponse extracts the flagged headlines from a model reply:
// one per line, tolerating bullet or numbered prefixes. A NONE reply or
// blank output yields an empty list.
func ParseRemovalResponse(text string) []string {
	var flagged []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "- ")
		line = strings.TrimPrefix(line, "* ")
		line = trimNumberPrefix(line)
		line = strings.TrimSpace(line)
		if line == "" || strings.EqualFold(line, "NONE") {
			continue
		}
		flagged = append(flagged, line)
	}
	return flagged
}

// trimNumberPrefix strips a leading "1. " or "12) " style enumerator.
func trimNumberPrefix(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(s) {
		return s
	}
	if s[i] == '.' || s[i] == ')' {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
