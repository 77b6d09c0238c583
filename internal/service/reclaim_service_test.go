package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"expert-crm/internal/model"
)

func TestBuildExpiryNotifications(t *testing.T) {
	t.Parallel()

	owner := "owner-1"

	t.Run("notifies the previous owner and every team lead", func(t *testing.T) {
		got := buildExpiryNotifications(
			model.Candidate{ID: "e1", Name: "Dr. Chen", OwnerID: &owner},
			[]string{"lead-1", "lead-2"},
		)

		require.Len(t, got, 3)
		require.Equal(t, owner, got[0].UserID)
		require.Equal(t, model.NotificationExpertExpired, got[0].Type)
		require.Equal(t, "lead-1", got[1].UserID)
		require.Equal(t, model.NotificationGlobalPoolTransition, got[1].Type)
		require.Equal(t, "lead-2", got[2].UserID)
	})

	t.Run("does not notify a lead twice when they were the owner", func(t *testing.T) {
		got := buildExpiryNotifications(
			model.Candidate{ID: "e1", Name: "Dr. Chen", OwnerID: &owner},
			[]string{owner, "lead-2"},
		)

		require.Len(t, got, 2)
		require.Equal(t, owner, got[0].UserID)
		require.Equal(t, model.NotificationExpertExpired, got[0].Type)
		require.Equal(t, "lead-2", got[1].UserID)
	})

	t.Run("ownerless experts still reach the team leads", func(t *testing.T) {
		got := buildExpiryNotifications(
			model.Candidate{ID: "e1", Name: "Dr. Chen", OwnerID: nil},
			[]string{"lead-1"},
		)

		require.Len(t, got, 1)
		require.Equal(t, "lead-1", got[0].UserID)
		require.Equal(t, model.NotificationGlobalPoolTransition, got[0].Type)
	})

	t.Run("no owner and no leads yields nothing", func(t *testing.T) {
		got := buildExpiryNotifications(model.Candidate{ID: "e1", Name: "Dr. Chen"}, nil)
		require.Empty(t, got)
	})
}

func TestOwnerOrEmpty(t *testing.T) {
	t.Parallel()

	owner := "owner-1"
	require.Equal(t, "owner-1", ownerOrEmpty(&owner))
	require.Equal(t, "", ownerOrEmpty(nil))
}
