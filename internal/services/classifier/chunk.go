package classifier

import "strings"

// Chunk splits posts into contiguous groups of ceil(len/n) posts.
// The groups partition posts exactly; there may be fewer than n of them.
func Chunk(posts []string, n int) [][]string {
	if len(posts) == 0 {
		return nil
	}
	if n < 1 {
		n = 1
	}

	size := (len(posts) + n - 1) / n
	chunks := make([][]string, 0, n)
	for start := 0; start < len(posts); start += size {
		end := start + size
		if end > len(posts) {
			end = len(posts)
		}
		chunks = append(chunks, posts[start:end])
	}
	return chunks
}

// ChunkText renders a chunk the way the scoring prompt expects it
func ChunkText(posts []string) string {
	var sb strings.Builder
	for i, post := range posts {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString("post: ")
		sb.WriteString(post)
	}
	return sb.String()
}
