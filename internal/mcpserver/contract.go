package mcpserver

// JournalContract explains how the journal counts words and when entries
// affect progress, so LLM consumers write entries the way players do.
const JournalContract = `# Ithaca Journal Contract

Entries are plain text, optionally Markdown. Each entry belongs to the in-game
day on which it was started.

## Lifecycle

1. **Draft.** A new entry is empty and unconfirmed. Edits to a draft never
   count toward progress.
2. **Confirmed.** Confirming an entry counts its words once. Later edits to a
   confirmed entry add or subtract only the difference. Confirmation cannot be
   undone.
3. **Trash.** A trashed entry keeps its contribution and can be restored.
4. **Deleted.** Deleting an entry for good subtracts its last counted words.

## Word counting

Every character that is not whitespace is one word. ` + "`" + `hello world` + "`" + ` counts 10;
CJK text counts one per character.

## Titles and tags

- The first ` + "`" + `# ` + "`" + ` heading is the title; otherwise the first line is used.
- Inline ` + "`" + `#tags` + "`" + ` (a hash directly followed by a letter) label an entry, e.g.
  ` + "`" + `a walk by the #harbour` + "`" + `.

## Progress

Reaching word milestones unlocks story fragments; collecting every fragment of
a recipe recomposes a book on the player's shelf. Use ` + "`" + `get_progress` + "`" + ` and
` + "`" + `list_books` + "`" + ` to see where the player stands.
`
