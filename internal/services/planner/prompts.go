package planner

import (
	"fmt"
	"strings"
)

const organizationSchema = `{
  "folders": {
    "<folder-name>": [<file_id>, <file_id>, ...],
    ...
  }
}`

var systemPrompt = fmt.Sprintf(`You are a file organization assistant. Given a user's instruction and files with metadata, propose how to organize them into folders.

CRITICAL: FOLLOW USER INSTRUCTIONS LITERALLY
- The user's instruction is the PRIMARY directive - follow it EXACTLY
- If user says "move all files to X" or "put all files in X", put ALL files in folder "X" - no exceptions
- Do NOT organize by file type unless the user specifically asks for it
- Do NOT create additional folders beyond what the user requested

FRESH START ON EVERY REQUEST:
- Each instruction is a NEW organization request - ignore any existing folder structure
- Files may currently be in subfolders - IGNORE their current location
- Treat ALL files as if they are in a flat list, ready to be organized from scratch

FILE INFORMATION PROVIDED:
- id: unique file identifier (use this in your response)
- name: the filename
- ext: the FILE EXTENSION (e.g., .mp4, .json, .png, .pdf)
- label/tags/caption: descriptive metadata

STRICT RULES:
1. Return ONLY valid JSON matching this schema:
%s

2. folder-name: use EXACTLY what the user specifies, or lowercase kebab-case if organizing by type
3. Use ONLY file_ids from the provided list - NEVER invent IDs
4. EVERY file_id must appear in exactly ONE folder
5. Maximum 2 folder levels
6. Do NOT rename files - only organize into folders
7. NEVER return empty folders - every folder must have at least one file

JSON only. No markdown. No explanation. No prose.`, organizationSchema)

// ComposeInstruction builds the full planner instruction for a batch. In
// restricted mode the model may only use existing folders; otherwise the
// user's instruction (or a type-based default) drives the layout. The parent
// folder's own name is forbidden as a target so files don't nest into a
// duplicate of the folder being watched.
func ComposeInstruction(userInstruction, parentFolderName string, existingFolders []string) string {
	parent := strings.ToLower(strings.TrimSpace(parentFolderName))

	if len(existingFolders) > 0 {
		quoted := make([]string, 0, len(existingFolders))
		for _, folder := range existingFolders {
			quoted = append(quoted, fmt.Sprintf("'%s'", folder))
		}
		instruction := strings.TrimSpace(userInstruction)
		if instruction == "" {
			instruction = "Organize files into appropriate folders"
		}
		return fmt.Sprintf(`[AUTO-ORGANIZE - EXISTING FOLDERS ONLY]
User's instructions: %s

EXISTING FOLDERS YOU CAN USE: %s

CRITICAL RULES:
1. You can ONLY use the folders listed above - DO NOT create any new folders
2. Move EVERY file to the most appropriate EXISTING folder based on file type/content
3. EVERY file MUST be included in your plan - put each file in the closest matching folder
4. Do NOT leave any files out - use your best judgment for the closest match
5. EVERY file_id in your response MUST go to one of the existing folders listed above`,
			instruction, strings.Join(quoted, ", "))
	}

	if strings.TrimSpace(userInstruction) != "" {
		return fmt.Sprintf(`[AUTO-ORGANIZE] User's specific instructions: %s

PARENT FOLDER NAME: '%s' - DO NOT create a folder with this name!

RULES FOR AUTO-ORGANIZE MODE:
1. FOLLOW the user's specific instructions EXACTLY for any files they mentioned
2. For ALL REMAINING files not covered by user's instructions, organize them logically by file type
3. EVERY file MUST be placed in a folder - NO files left out
4. Use simple, clear folder names (e.g., 'photos', 'docs', 'videos', 'audio', 'misc')
5. IMPORTANT: Do NOT create a folder named '%s' - use different names
6. If user says 'screenshots to X' - put screenshots in X, organize everything else by type`,
			strings.TrimSpace(userInstruction), parent, parent)
	}

	return fmt.Sprintf(`[AUTO-ORGANIZE] Organize ALL files into logical folders based on file type and content.
PARENT FOLDER NAME: '%s' - DO NOT create a folder with this name!

Use clear folder names like 'photos', 'docs', 'videos', 'audio', 'misc'.
IMPORTANT: Do NOT create a folder named '%s' since that's the parent folder.
EVERY file MUST be placed in a folder - NO files left out.`, parent, parent)
}

const maxSummaryFiles = 300

// buildFileSummary renders a compact one-line-per-file digest for the model,
// capped to keep the prompt within context limits.
func buildFileSummary(files []FileInfo) string {
	limit := len(files)
	if limit > maxSummaryFiles {
		limit = maxSummaryFiles
	}
	lines := make([]string, 0, limit)
	for _, file := range files[:limit] {
		name := truncateRunes(file.Name, 50)
		tags := file.Tags
		if len(tags) > 8 {
			tags = tags[:8]
		}
		line := fmt.Sprintf("id:%d | %s | ext:%s", file.ID, name, strings.ToLower(file.Ext))
		if file.Size > 0 {
			line += " | size:" + humanSize(file.Size)
		}
		line += fmt.Sprintf(" | label:%s | tags:[%s]", file.Label, strings.Join(tags, ", "))
		if caption := strings.TrimSpace(file.Caption); caption != "" {
			line += " | caption:" + truncateRunes(caption, 80)
		}
		lines = append(lines, line)
	}
	if len(files) > limit {
		lines = append(lines, fmt.Sprintf("... and %d more files", len(files)-limit))
	}
	return strings.Join(lines, "\n")
}

// truncateRunes cuts s to at most limit runes. Byte slicing would split
// multi-byte characters and leak invalid UTF-8 into the prompt.
func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func humanSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1fMB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1fKB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%dB", n)
	}
}

// buildUserPrompt assembles the per-request message around the composed
// instruction and the file summary.
func buildUserPrompt(instruction string, files []FileInfo) string {
	total := len(files)
	return fmt.Sprintf(`User instruction: "%s"

Files to organize (%d total):
%s

CRITICAL - FOLLOW THE INSTRUCTION LITERALLY:
- If the instruction says "move all files to X" or "put files in folder X", put ALL %d files in folder "X"
- Do NOT organize by file type unless explicitly asked
- Do NOT create extra folders - only create what the user asked for
- You MUST include EVERY file_id in your response
- Each file_id must appear in exactly ONE folder
- Total files in your response must equal %d

Propose an organization plan. Return JSON only.`,
		instruction, total, buildFileSummary(files), total, total)
}
