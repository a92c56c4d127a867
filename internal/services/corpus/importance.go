package corpus

import (
	"regexp"
	"strconv"

	"github.com/ternarybob/portent/internal/models"
)

// quoteLinkPattern matches the in-thread reply links the imageboard renders for >>123 quotes
var quoteLinkPattern = regexp.MustCompile(`href="#p(\d+)"`)

// CountQuotes returns, per post number, how many distinct other posts of the thread quote it.
// Repeated links from one post count once and posts quoting themselves are ignored.
func CountQuotes(posts []models.ThreadPost) map[int64]int {
	counts := make(map[int64]int)
	for _, post := range posts {
		if post.Com == "" {
			continue
		}
		seen := make(map[int64]bool)
		for _, match := range quoteLinkPattern.FindAllStringSubmatch(post.Com, -1) {
			target, err := strconv.ParseInt(match[1], 10, 64)
			if err != nil || target == post.No || seen[target] {
				continue
			}
			seen[target] = true
			counts[target]++
		}
	}
	return counts
}

// ImportantPosts keeps the thread's opening post plus every post quoted by at
// least threshold other posts, in thread order
func ImportantPosts(threadNo int64, posts []models.ThreadPost, threshold int) []models.ThreadPost {
	counts := CountQuotes(posts)
	important := make([]models.ThreadPost, 0, len(posts))
	for _, post := range posts {
		if post.No == threadNo || counts[post.No] >= threshold {
			important = append(important, post)
		}
	}
	return important
}
