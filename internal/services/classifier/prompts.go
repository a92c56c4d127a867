package classifier

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Prompts holds the instructions sent to the scoring backend and the intro
// written at the top of the reasoning document
type Prompts struct {
	System    string `yaml:"system"`
	Synthesis string `yaml:"synthesis"`
	Intro     string `yaml:"intro"` // "{chunks}" is replaced by the chunk count
}

const defaultSystemPrompt = `You are about to be given a batch of posts scraped from the /x/ and /pol/ boards of an anonymous imageboard. ` +
	`Analyse them to determine the collective sentiment these users hold about the future, and assign one score between -1 and 1 for the batch. ` +
	`-1 means they are making extremely bad predictions of the future, 1 means extremely good predictions. ` +
	`Judge good and bad from the perspective of these users, not from a general audience perspective. ` +
	`The score has a required resolution of two decimal places. Ignore posts that say nothing about where the world is heading. ` +
	`A full -1 or 1 is reserved for extreme outlooks such as world war, a hostile alien invasion or a divine return. ` +
	`Scores of -0.5 or 0.5 are rare and mean a considerably good or bad day; anything between -0.2 and 0.2 is an ordinary day, and 0 is an average day. ` +
	`Posts the users would call "schizo posts" (far-out, esoteric, conspiratorial predictions) count for more than ordinary posts. ` +
	`Only predictions that affect many people or the world as a whole matter, not the future of one individual. ` +
	`Write one paragraph explaining your reasoning, then beneath it write the score in the format score:number so it can be parsed.`

const defaultSynthesisPrompt = `You are given the reasoning written for several batches of imageboard posts, each with the sentiment score it received. ` +
	`Write a short narrative, two or three paragraphs, describing the overall outlook on the future these batches share and where they disagree. ` +
	`Do not output a score.`

const defaultIntro = `Hundreds of imageboard posts are broken into {chunks} chunks. Each chunk contains multiple posts. ` +
	`The chunk is then analysed by the AI and given a score by observing the most future-predictive and schizo posts. ` +
	`Then all scores are averaged together into the overall score. Below is the AI's reasoning for each chunk of posts:`

// DefaultPrompts returns the built-in prompts
func DefaultPrompts() *Prompts {
	return &Prompts{
		System:    defaultSystemPrompt,
		Synthesis: defaultSynthesisPrompt,
		Intro:     defaultIntro,
	}
}

// LoadPrompts reads a YAML prompts file over the defaults. Keys absent from
// the file keep their default. An empty path returns the defaults.
func LoadPrompts(path string) (*Prompts, error) {
	prompts := DefaultPrompts()
	if path == "" {
		return prompts, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file %s: %w", path, err)
	}

	var override Prompts
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("failed to parse prompts file %s: %w", path, err)
	}

	if s := strings.TrimSpace(override.System); s != "" {
		prompts.System = s
	}
	if s := strings.TrimSpace(override.Synthesis); s != "" {
		prompts.Synthesis = s
	}
	if s := strings.TrimSpace(override.Intro); s != "" {
		prompts.Intro = s
	}
	return prompts, nil
}

// IntroFor renders the intro for a pass with the given number of chunks
func (p *Prompts) IntroFor(chunks int) string {
	return strings.ReplaceAll(p.Intro, "{chunks}", strconv.Itoa(chunks))
}
