package tests

import (
	"testing"

	"github.com/google/uuid"
	"github.com/inventara/inventara/app/dto"
	businessflow "github.com/inventara/inventara/business_flow"
	"github.com/inventara/inventara/models"
	"github.com/inventara/inventara/repository"
	testingutil "github.com/inventara/inventara/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDiscussionFlow(testDB *testingutil.TestDB) businessflow.DiscussionFlow {
	return businessflow.NewDiscussionFlow(
		repository.NewDiscussionRepository(testDB.DB),
		repository.NewInventoryRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		testDB.DB,
	)
}

func TestCreateDiscussionPost(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newDiscussionFlow(testDB)
		ctx := testingutil.CreateTestContext()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		owner, err := fixtures.CreateTestUser(models.UserRoleUser)
		require.NoError(t, err)
		inventory, err := fixtures.CreateTestInventory(owner.ID, false)
		require.NoError(t, err)

		t.Run("AnyUserCanPost", func(t *testing.T) {
			visitor, err := fixtures.CreateTestUser(models.UserRoleUser)
			require.NoError(t, err)

			resp, err := flow.CreatePost(ctx, visitor, &dto.CreateDiscussionPostRequest{
				InventoryUUID: inventory.UUID.String(),
				Text:          "Has anyone seen the 1970s batch?",
			}, metadata)
			require.NoError(t, err)
			assert.Equal(t, visitor.ID, resp.Post.AuthorID)
			assert.Equal(t, visitor.Name, resp.Post.AuthorName)
			assert.Equal(t, "Has anyone seen the 1970s batch?", resp.Post.Text)
			assert.NotZero(t, resp.Post.ID)
		})

		t.Run("TextIsTrimmed", func(t *testing.T) {
			resp, err := flow.CreatePost(ctx, owner, &dto.CreateDiscussionPostRequest{
				InventoryUUID: inventory.UUID.String(),
				Text:          "  padded message  ",
			}, metadata)
			require.NoError(t, err)
			assert.Equal(t, "padded message", resp.Post.Text)
		})

		t.Run("BlankTextIsRejected", func(t *testing.T) {
			_, err := flow.CreatePost(ctx, owner, &dto.CreateDiscussionPostRequest{
				InventoryUUID: inventory.UUID.String(),
				Text:          "   ",
			}, metadata)
			require.Error(t, err)
		})

		t.Run("MissingInventoryIsRejected", func(t *testing.T) {
			_, err := flow.CreatePost(ctx, owner, &dto.CreateDiscussionPostRequest{
				InventoryUUID: uuid.NewString(),
				Text:          "hello",
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsInventoryNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestListDiscussionPosts(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newDiscussionFlow(testDB)
		ctx := testingutil.CreateTestContext()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		owner, err := fixtures.CreateTestUser(models.UserRoleUser)
		require.NoError(t, err)
		inventory, err := fixtures.CreateTestInventory(owner.ID, false)
		require.NoError(t, err)

		messages := []string{"first", "second", "third"}
		for _, text := range messages {
			_, err := flow.CreatePost(ctx, owner, &dto.CreateDiscussionPostRequest{
				InventoryUUID: inventory.UUID.String(),
				Text:          text,
			}, metadata)
			require.NoError(t, err)
		}

		t.Run("NewestFirstByDefault", func(t *testing.T) {
			resp, err := flow.ListPosts(ctx, &dto.ListDiscussionPostsRequest{
				InventoryUUID: inventory.UUID.String(),
			})
			require.NoError(t, err)
			require.Len(t, resp.Posts, 3)
			assert.Equal(t, int64(3), resp.Total)
			assert.False(t, resp.HasMore)
			// Rows created in one transaction burst can share a timestamp, so
			// assert the set rather than the exact order
			seen := map[string]bool{}
			for _, post := range resp.Posts {
				seen[post.Text] = true
			}
			for _, text := range messages {
				assert.True(t, seen[text])
			}
		})

		t.Run("AscendingOrderOnRequest", func(t *testing.T) {
			resp, err := flow.ListPosts(ctx, &dto.ListDiscussionPostsRequest{
				InventoryUUID: inventory.UUID.String(),
				Order:         "asc",
			})
			require.NoError(t, err)
			require.Len(t, resp.Posts, 3)
			assert.True(t, resp.Posts[0].ID < resp.Posts[2].ID)
		})

		t.Run("PaginationReportsHasMore", func(t *testing.T) {
			resp, err := flow.ListPosts(ctx, &dto.ListDiscussionPostsRequest{
				InventoryUUID: inventory.UUID.String(),
				Page:          1,
				PageSize:      2,
			})
			require.NoError(t, err)
			assert.Len(t, resp.Posts, 2)
			assert.Equal(t, int64(3), resp.Total)
			assert.True(t, resp.HasMore)

			last, err := flow.ListPosts(ctx, &dto.ListDiscussionPostsRequest{
				InventoryUUID: inventory.UUID.String(),
				Page:          2,
				PageSize:      2,
			})
			require.NoError(t, err)
			assert.Len(t, last.Posts, 1)
			assert.False(t, last.HasMore)
		})

		t.Run("AuthorIsIncluded", func(t *testing.T) {
			resp, err := flow.ListPosts(ctx, &dto.ListDiscussionPostsRequest{
				InventoryUUID: inventory.UUID.String(),
				PageSize:      1,
			})
			require.NoError(t, err)
			require.Len(t, resp.Posts, 1)
			assert.Equal(t, owner.Name, resp.Posts[0].AuthorName)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestDeleteDiscussionPost(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newDiscussionFlow(testDB)
		ctx := testingutil.CreateTestContext()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		owner, err := fixtures.CreateTestUser(models.UserRoleUser)
		require.NoError(t, err)
		inventory, err := fixtures.CreateTestInventory(owner.ID, false)
		require.NoError(t, err)

		post := func(author *models.User) uint {
			resp, err := flow.CreatePost(ctx, author, &dto.CreateDiscussionPostRequest{
				InventoryUUID: inventory.UUID.String(),
				Text:          "to be moderated",
			}, metadata)
			require.NoError(t, err)
			return resp.Post.ID
		}

		t.Run("AuthorCanDeleteOwnPost", func(t *testing.T) {
			author, err := fixtures.CreateTestUser(models.UserRoleUser)
			require.NoError(t, err)
			postID := post(author)

			require.NoError(t, flow.DeletePost(ctx, author, inventory.UUID.String(), postID, metadata))

			err = flow.DeletePost(ctx, author, inventory.UUID.String(), postID, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsDiscussionPostNotFound(err))
		})

		t.Run("AdminCanDeleteAnyPost", func(t *testing.T) {
			author, err := fixtures.CreateTestUser(models.UserRoleUser)
			require.NoError(t, err)
			admin, err := fixtures.CreateTestUser(models.UserRoleAdmin)
			require.NoError(t, err)
			postID := post(author)

			require.NoError(t, flow.DeletePost(ctx, admin, inventory.UUID.String(), postID, metadata))
		})

		t.Run("StrangerCannotDelete", func(t *testing.T) {
			author, err := fixtures.CreateTestUser(models.UserRoleUser)
			require.NoError(t, err)
			stranger, err := fixtures.CreateTestUser(models.UserRoleUser)
			require.NoError(t, err)
			postID := post(author)

			err = flow.DeletePost(ctx, stranger, inventory.UUID.String(), postID, metadata)
			require.Error(t, err)

			// Post survives the denied attempt
			resp, err := flow.ListPosts(ctx, &dto.ListDiscussionPostsRequest{
				InventoryUUID: inventory.UUID.String(),
			})
			require.NoError(t, err)
			found := false
			for _, p := range resp.Posts {
				if p.ID == postID {
					found = true
				}
			}
			assert.True(t, found)
		})

		t.Run("MissingPostIsNotFound", func(t *testing.T) {
			err := flow.DeletePost(ctx, owner, inventory.UUID.String(), 999999, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsDiscussionPostNotFound(err))
		})

		t.Run("PostOnAnotherInventoryIsNotFound", func(t *testing.T) {
			other, err := fixtures.CreateTestInventory(owner.ID, false)
			require.NoError(t, err)
			postID := post(owner)

			err = flow.DeletePost(ctx, owner, other.UUID.String(), postID, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsDiscussionPostNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}
