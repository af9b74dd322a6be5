package database

import (
	"testing"

	modelspkg "folio/internal/models"

	"github.com/stretchr/testify/require"
)

func TestPersistentModels_IncludesEngagementTables(t *testing.T) {
	var likes, votes, selections bool
	for _, model := range PersistentModels() {
		switch model.(type) {
		case *modelspkg.EssayLike:
			likes = true
		case *modelspkg.ReviewVote:
			votes = true
		case *modelspkg.DiscussionSelection:
			selections = true
		}
	}
	require.True(t, likes, "PersistentModels should include EssayLike")
	require.True(t, votes, "PersistentModels should include ReviewVote")
	require.True(t, selections, "PersistentModels should include DiscussionSelection")
}
