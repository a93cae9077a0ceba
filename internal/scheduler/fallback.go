package scheduler

import (
	"math/rand"

	"github.com/versefeed/versefeed/internal/model"
)

// fallbackVerses is the fixed local list used whenever every external
// source fails. The scheduler must never leave the current verse unset, so
// this list is the floor the whole feature stands on.
var fallbackVerses = []model.Verse{
	{Reference: "John 3:16", Book: "John", Translation: "WEB", Source: "fallback",
		Text: "For God so loved the world, that he gave his one and only Son, that whoever believes in him should not perish, but have eternal life."},
	{Reference: "Psalm 23:1", Book: "Psalm", Translation: "WEB", Source: "fallback",
		Text: "Yahweh is my shepherd: I shall lack nothing."},
	{Reference: "Proverbs 3:5", Book: "Proverbs", Translation: "WEB", Source: "fallback",
		Text: "Trust in Yahweh with all your heart, and don't lean on your own understanding."},
	{Reference: "Philippians 4:13", Book: "Philippians", Translation: "WEB", Source: "fallback",
		Text: "I can do all things through Christ, who strengthens me."},
	{Reference: "Romans 8:28", Book: "Romans", Translation: "WEB", Source: "fallback",
		Text: "We know that all things work together for good for those who love God, for those who are called according to his purpose."},
	{Reference: "Isaiah 41:10", Book: "Isaiah", Translation: "WEB", Source: "fallback",
		Text: "Don't you be afraid, for I am with you. Don't be dismayed, for I am your God. I will strengthen you. Yes, I will help you."},
	{Reference: "Joshua 1:9", Book: "Joshua", Translation: "WEB", Source: "fallback",
		Text: "Haven't I commanded you? Be strong and courageous. Don't be afraid. Don't be dismayed, for Yahweh your God is with you wherever you go."},
	{Reference: "Matthew 11:28", Book: "Matthew", Translation: "WEB", Source: "fallback",
		Text: "Come to me, all you who labor and are heavily burdened, and I will give you rest."},
}

// randomFallback picks one entry from the fixed list.
func randomFallback() model.Verse {
	return fallbackVerses[rand.Intn(len(fallbackVerses))]
}
