package normalize

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ppiankov/vocabdeck/internal/llm"
)

const (
	authorVotes    = 3
	authorMajority = 2
)

const authorPrompt = `You are an expert on books and authors.

TASK: Return ONLY the full name of the author of the following book.

Book title: "%s"

IMPORTANT:
- Only the author's name, nothing else
- Format: "Firstname Lastname"
- If the author is unknown, respond with "Unknown"

Author:`

// AuthorResolver infers a book's author by asking the annotation service
// several times and accepting only a majority answer
type AuthorResolver struct {
	provider llm.Provider
	rc       *RunContext
	log      zerolog.Logger
}

// NewAuthorResolver creates a resolver that memoizes into rc
func NewAuthorResolver(provider llm.Provider, rc *RunContext, log zerolog.Logger) *AuthorResolver {
	return &AuthorResolver{provider: provider, rc: rc, log: log}
}

// Resolve returns the majority author for title. A transport failure or
// a vote without a 2-of-3 majority yields no author.
func (r *AuthorResolver) Resolve(ctx context.Context, title string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(title))
	if key == "" || r.provider == nil {
		return "", false
	}
	if author, ok := r.rc.Author(key); ok {
		return author, author != ""
	}

	prompt := fmt.Sprintf(authorPrompt, strings.TrimSpace(title))
	votes := make([]string, 0, authorVotes)
	for i := 0; i < authorVotes; i++ {
		resp, err := r.provider.Complete(ctx, llm.CompletionRequest{Prompt: prompt, MaxTokens: 64})
		if err != nil {
			r.log.Debug().Err(err).Str("title", title).Msg("author query failed")
			return "", false
		}
		votes = append(votes, cleanAuthorReply(resp.Text))
	}

	author, count := majority(votes)
	if count < authorMajority || author == "" || IsUnknown(author) {
		r.log.Debug().Str("title", title).Strs("votes", votes).Msg("author unresolved")
		r.rc.StoreAuthor(key, "")
		return "", false
	}

	r.log.Debug().Str("title", title).Str("author", author).Msg("author resolved")
	r.rc.StoreAuthor(key, author)
	return author, true
}

// cleanAuthorReply strips surrounding quotes and a leading "label:" from a reply
func cleanAuthorReply(reply string) string {
	reply = strings.TrimSpace(reply)
	if i := strings.Index(reply, ":"); i >= 0 && len(strings.Fields(reply[:i])) <= 2 {
		reply = reply[i+1:]
	}
	reply = strings.Trim(strings.TrimSpace(reply), "\"'“”„‘’`")
	return strings.Join(strings.Fields(reply), " ")
}

// majority returns the most frequent vote; ties go to the earliest vote
func majority(votes []string) (string, int) {
	counts := make(map[string]int, len(votes))
	best, bestCount := "", 0
	for _, v := range votes {
		counts[v]++
	}
	for _, v := range votes {
		if counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}
	return best, bestCount
}
