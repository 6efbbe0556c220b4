package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arenachat/pkg/models"
)

func sampleThreads() []models.Thread {
	return []models.Thread{
		{ID: "t1", Kind: models.ThreadKindSupport, Title: "Payout question", LastActivityTS: 100},
		{ID: "t2", Kind: models.ThreadKindTournament, Title: "Grand Finals", ContextLabel: "Spring Invitational", LastActivityTS: 300},
		{ID: "t3", Kind: models.ThreadKindSystem, Title: "Maintenance window", LastActivityTS: 200},
		{ID: "t4", Kind: models.ThreadKindFriendly, Title: "Scrim vs Umbra", Participants: []string{"Team Umbra"}, UpdatedTS: 250},
	}
}

func ids(threads []models.Thread) []string {
	out := make([]string, len(threads))
	for i, th := range threads {
		out[i] = th.ID
	}
	return out
}

func TestVisibleKindFilter(t *testing.T) {
	got := Visible(sampleThreads(), Filter{Kind: "tournament"})
	require.Len(t, got, 1)
	assert.Equal(t, "t2", got[0].ID)

	assert.Len(t, Visible(sampleThreads(), Filter{Kind: FilterAll}), 4)
	assert.Len(t, Visible(sampleThreads(), Filter{}), 4)
}

func TestVisibleSearchFields(t *testing.T) {
	threads := sampleThreads()

	// title, case-insensitive
	assert.Equal(t, []string{"t2"}, ids(Visible(threads, Filter{Query: "grand FIN"})))
	// context label
	assert.Equal(t, []string{"t2"}, ids(Visible(threads, Filter{Query: "invitational"})))
	// participant label
	assert.Equal(t, []string{"t4"}, ids(Visible(threads, Filter{Query: "umbra"})))
	// kind name matches too
	assert.Equal(t, []string{"t1"}, ids(Visible(threads, Filter{Query: "support"})))
	// no match
	assert.Empty(t, Visible(threads, Filter{Query: "zzz"}))
}

func TestSortThreadsByActivity(t *testing.T) {
	got := SortThreads(sampleThreads())
	// t4 has no last-activity but a newer updated timestamp
	assert.Equal(t, []string{"t2", "t4", "t3", "t1"}, ids(got))
}

func TestSortThreadsStableForMissingTimestamps(t *testing.T) {
	threads := []models.Thread{{ID: "a"}, {ID: "b"}, {ID: "c", LastActivityTS: 1}}
	got := SortThreads(threads)
	assert.Equal(t, []string{"c", "a", "b"}, ids(got))
}

func TestGroupSeparatesSystemThreads(t *testing.T) {
	g := Group(sampleThreads(), Filter{Kind: FilterAll})
	assert.Equal(t, []string{"t2", "t4", "t1"}, ids(g.Conversations))
	assert.Equal(t, []string{"t3"}, ids(g.System))
}

func openThread() models.Thread {
	return models.Thread{ID: "t1", Kind: models.ThreadKindTournament, Status: models.ThreadStatusOpen, CanSend: models.SendAllowed}
}

func TestComposeMineAndInstitutional(t *testing.T) {
	msgs := []models.Message{
		{ID: "m1", Kind: models.MessageUser, SenderID: "user-7", Body: "gl hf", CreatedTS: 1},
		{ID: "m2", Kind: models.MessageUser, SenderID: "user-9", Body: "u2", CreatedTS: 2},
		{ID: "m3", Kind: models.MessageNotice, AuthorLabel: "Match Ops", Body: "map veto starts", CreatedTS: 3},
	}
	v := Compose(openThread(), msgs, Viewer{ID: "user-7", Kind: models.AuthorTeam})

	require.Len(t, v.Items, 3)
	assert.True(t, v.Items[0].Mine)
	assert.False(t, v.Items[1].Mine)
	assert.False(t, v.Items[0].Institutional)
	assert.True(t, v.Items[2].Institutional)
	assert.True(t, v.CanCompose)
	assert.Empty(t, v.Notice)
}

func TestComposeAnonymousViewerOwnsNothing(t *testing.T) {
	msgs := []models.Message{{ID: "m1", Kind: models.MessageUser, SenderID: "", CreatedTS: 1}}
	v := Compose(openThread(), msgs, Viewer{})
	assert.False(t, v.Items[0].Mine)
}

func TestComposeChronologicalOrder(t *testing.T) {
	msgs := []models.Message{
		{ID: "late", CreatedTS: 30, Kind: models.MessageUser},
		{ID: "early", CreatedTS: 10, Kind: models.MessageUser},
		{ID: "mid", CreatedTS: 20, Kind: models.MessageUser},
	}
	v := Compose(openThread(), msgs, Viewer{})
	assert.Equal(t, "early", v.Items[0].ID)
	assert.Equal(t, "mid", v.Items[1].ID)
	assert.Equal(t, "late", v.Items[2].ID)
}

func TestComposePinnedCriticalCap(t *testing.T) {
	msgs := []models.Message{
		{ID: "c1", Kind: models.MessageDecision, AuthorKind: models.AuthorAdmin, Severity: models.SeverityCritical, CreatedTS: 1},
		{ID: "c2", Kind: models.MessageNotice, AuthorKind: models.AuthorAdmin, Severity: models.SeverityCritical, CreatedTS: 2},
		{ID: "w1", Kind: models.MessageNotice, AuthorKind: models.AuthorAdmin, Severity: models.SeverityWarning, CreatedTS: 3},
		{ID: "c3", Kind: models.MessageSystem, AuthorKind: models.AuthorSystem, Severity: models.SeverityCritical, CreatedTS: 4},
		{ID: "c4", Kind: models.MessageDecision, AuthorKind: models.AuthorAdmin, Severity: models.SeverityCritical, CreatedTS: 5},
		// viewer's own kind is never pinned at them
		{ID: "own", Kind: models.MessageNotice, AuthorKind: models.AuthorTeam, Severity: models.SeverityCritical, CreatedTS: 6},
		// user messages never pin regardless of severity
		{ID: "u1", Kind: models.MessageUser, Severity: models.SeverityCritical, CreatedTS: 7},
	}
	v := Compose(openThread(), msgs, Viewer{ID: "user-7", Kind: models.AuthorTeam})

	require.Len(t, v.Pinned, 3)
	// three most recent qualifying, newest first
	assert.Equal(t, "c4", v.Pinned[0].ID)
	assert.Equal(t, "c3", v.Pinned[1].ID)
	assert.Equal(t, "c2", v.Pinned[2].ID)
	// pinned messages still appear in the history
	assert.Len(t, v.Items, 7)
}

func TestComposeReadOnlyNotice(t *testing.T) {
	th := models.Thread{ID: "t1", Kind: models.ThreadKindSupport, Status: models.ThreadStatusArchived}
	v := Compose(th, nil, Viewer{})
	assert.False(t, v.CanCompose)
	assert.Equal(t, "this conversation has been archived", v.Notice)

	th = models.Thread{ID: "t2", CanSend: models.SendDisallowed, SendDisabledReason: "archived conversation"}
	v = Compose(th, nil, Viewer{})
	assert.False(t, v.CanCompose)
	assert.Equal(t, "archived conversation", v.Notice)
}
