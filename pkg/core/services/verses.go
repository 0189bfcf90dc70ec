package services

import "math/rand/v2"

// Verse is an encouragement message shown after a successful punch
type Verse struct {
	Text      string `json:"text"`
	Reference string `json:"reference"`
}

var verses = []Verse{
	{
		Text:      "Each of you should use whatever gift you have received to serve others, as faithful stewards of God's grace.",
		Reference: "1 Peter 4:10",
	},
	{
		Text:      "Whatever you do, work at it with all your heart, as working for the Lord, not for human masters.",
		Reference: "Colossians 3:23",
	},
	{
		Text:      "Serve wholeheartedly, as if you were serving the Lord, not people.",
		Reference: "Ephesians 6:7",
	},
	{
		Text:      "The greatest among you will be your servant.",
		Reference: "Matthew 23:11",
	},
	{
		Text:      "Carry each other's burdens, and in this way you will fulfill the law of Christ.",
		Reference: "Galatians 6:2",
	},
}

// Verses returns the encouragement pool
func Verses() []Verse {
	return append([]Verse(nil), verses...)
}

// randomVerse picks uniformly; pick is rand.IntN outside tests
func randomVerse(pick func(n int) int) Verse {
	if pick == nil {
		pick = rand.IntN
	}
	return verses[pick(len(verses))]
}
