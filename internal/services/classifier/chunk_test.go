package classifier

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makePosts(n int) []string {
	posts := make([]string, n)
	for i := range posts {
		posts[i] = fmt.Sprintf("p%d", i)
	}
	return posts
}

func TestChunk_ExactPartition(t *testing.T) {
	for m := 1; m <= 40; m++ {
		for n := -1; n <= 12; n++ {
			posts := makePosts(m)
			chunks := Chunk(posts, n)

			effective := n
			if effective < 1 {
				effective = 1
			}
			size := (m + effective - 1) / effective

			var flattened []string
			for i, chunk := range chunks {
				require.NotEmpty(t, chunk)
				if i < len(chunks)-1 {
					assert.Len(t, chunk, size, "m=%d n=%d chunk=%d", m, n, i)
				} else {
					assert.LessOrEqual(t, len(chunk), size)
				}
				flattened = append(flattened, chunk...)
			}
			assert.Equal(t, posts, flattened, "m=%d n=%d", m, n)
			assert.LessOrEqual(t, len(chunks), effective)
		}
	}
}

func TestChunk_Examples(t *testing.T) {
	assert.Nil(t, Chunk(nil, 10))

	chunks := Chunk(makePosts(25), 10)
	assert.Len(t, chunks, 9) // size 3
	assert.Len(t, chunks[8], 1)

	chunks = Chunk(makePosts(5), 0)
	require.Len(t, chunks, 1)
	assert.Len(t, chunks[0], 5)

	chunks = Chunk(makePosts(3), 10)
	assert.Len(t, chunks, 3)
}

func TestChunkText(t *testing.T) {
	assert.Equal(t, "post: a\n\npost: b", ChunkText([]string{"a", "b"}))
	assert.Equal(t, "post: only", ChunkText([]string{"only"}))
}
