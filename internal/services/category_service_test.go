package services

import (
	"context"
	"testing"

	"spendwise/internal/models"
	"spendwise/internal/testutil"
)

func TestCreateCategory(t *testing.T) {
	ctx := context.Background()

	t.Run("admin", func(t *testing.T) {
		env := newTestEnv(t)
		admin := testutil.CreateTestUser(t, env.db, models.RoleAdmin)

		cat, err := env.categories.CreateCategory(ctx, actorOf(admin), CreateCategoryInput{
			Name:  "  Groceries ",
			Color: "#22c55e",
			Icon:  "cart",
		})
		testutil.AssertNoError(t, err)
		if cat.Name != "Groceries" {
			t.Errorf("expected trimmed name, got %q", cat.Name)
		}
		if !cat.IsActive || cat.CreatedBy != admin.ID {
			t.Errorf("unexpected category %+v", cat)
		}
		if entries := auditEntries(t, env, cat.ID); len(entries) != 1 || entries[0].Action != models.AuditCreate {
			t.Errorf("expected a create entry, got %+v", entries)
		}
	})

	t.Run("non_admin_forbidden", func(t *testing.T) {
		env := newTestEnv(t)
		for _, role := range []models.Role{models.RoleAccountant, models.RoleUser} {
			u := testutil.CreateTestUser(t, env.db, role)
			_, err := env.categories.CreateCategory(ctx, actorOf(u), CreateCategoryInput{Name: "Travel"})
			testutil.AssertForbidden(t, err)
		}
	})

	t.Run("validation", func(t *testing.T) {
		env := newTestEnv(t)
		admin := testutil.CreateTestUser(t, env.db, models.RoleAdmin)

		cases := map[string]CreateCategoryInput{
			"empty_name": {Name: "   "},
			"bad_color":  {Name: "Travel", Color: "blue"},
			"short_hex":  {Name: "Travel", Color: "#12345"},
		}
		for name, input := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := env.categories.CreateCategory(ctx, actorOf(admin), input)
				testutil.AssertAppError(t, err, "INVALID_INPUT")
			})
		}
	})

	t.Run("duplicate_name_ignores_case", func(t *testing.T) {
		env := newTestEnv(t)
		admin := testutil.CreateTestUser(t, env.db, models.RoleAdmin)

		_, err := env.categories.CreateCategory(ctx, actorOf(admin), CreateCategoryInput{Name: "Travel"})
		testutil.AssertNoError(t, err)
		_, err = env.categories.CreateCategory(ctx, actorOf(admin), CreateCategoryInput{Name: "TRAVEL"})
		testutil.AssertAppError(t, err, "DUPLICATE_CATEGORY")
	})

	t.Run("name_reusable_after_delete", func(t *testing.T) {
		env := newTestEnv(t)
		admin := testutil.CreateTestUser(t, env.db, models.RoleAdmin)

		first, err := env.categories.CreateCategory(ctx, actorOf(admin), CreateCategoryInput{Name: "Travel"})
		testutil.AssertNoError(t, err)
		testutil.AssertNoError(t, env.categories.DeleteCategory(ctx, actorOf(admin), first.ID))

		_, err = env.categories.CreateCategory(ctx, actorOf(admin), CreateCategoryInput{Name: "Travel"})
		testutil.AssertNoError(t, err)
	})
}

func TestUpdateCategory(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := testutil.CreateTestUser(t, env.db, models.RoleAdmin)
	travel := testutil.CreateTestCategory(t, env.db)
	food := testutil.CreateTestCategory(t, env.db)

	t.Run("rename_and_recolor", func(t *testing.T) {
		updated, err := env.categories.UpdateCategory(ctx, actorOf(admin), travel.ID, UpdateCategoryInput{
			Name:  ptr("Trips"),
			Color: ptr("#ABCDEF"),
		})
		testutil.AssertNoError(t, err)
		if updated.Name != "Trips" || updated.Color != "#ABCDEF" {
			t.Errorf("unexpected category %+v", updated)
		}

		entries := auditEntries(t, env, travel.ID)
		if len(entries) != 1 || len(entries[0].Changes) != 2 {
			t.Errorf("expected one update with two changes, got %+v", entries)
		}
	})

	t.Run("same_name_different_case", func(t *testing.T) {
		_, err := env.categories.UpdateCategory(ctx, actorOf(admin), travel.ID, UpdateCategoryInput{Name: ptr("TRIPS")})
		testutil.AssertNoError(t, err)
	})

	t.Run("clash_with_other", func(t *testing.T) {
		_, err := env.categories.UpdateCategory(ctx, actorOf(admin), food.ID, UpdateCategoryInput{Name: ptr("trips")})
		testutil.AssertAppError(t, err, "DUPLICATE_CATEGORY")
	})

	t.Run("missing", func(t *testing.T) {
		_, err := env.categories.UpdateCategory(ctx, actorOf(admin), "0190a4c5-0000-7000-8000-000000000020", UpdateCategoryInput{})
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
	})
}

func TestDeleteCategory(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := testutil.CreateTestUser(t, env.db, models.RoleAdmin)
	user := testutil.CreateTestUser(t, env.db, models.RoleUser)

	t.Run("soft_delete_keeps_history", func(t *testing.T) {
		cat := testutil.CreateTestCategory(t, env.db)
		expense := testutil.CreateTestExpense(t, env.db, user.ID, cat.ID, 1500, testNow)

		testutil.AssertNoError(t, env.categories.DeleteCategory(ctx, actorOf(admin), cat.ID))

		stored, err := env.categories.GetCategoryByID(ctx, cat.ID)
		testutil.AssertNoError(t, err)
		if stored.IsActive {
			t.Error("expected category to be inactive")
		}

		got, err := env.expenses.GetExpenseByID(ctx, actorOf(user), expense.ID)
		testutil.AssertNoError(t, err)
		if got.CategoryID != cat.ID {
			t.Error("expense should keep its category reference")
		}

		active, err := env.categories.ListCategories(ctx, false)
		testutil.AssertNoError(t, err)
		for _, c := range active {
			if c.ID == cat.ID {
				t.Error("inactive category listed")
			}
		}
		all, err := env.categories.ListCategories(ctx, true)
		testutil.AssertNoError(t, err)
		if len(all) != len(active)+1 {
			t.Errorf("expected inactive category when included, got %d vs %d", len(all), len(active))
		}
	})

	t.Run("default_protected", func(t *testing.T) {
		cat := testutil.CreateTestCategory(t, env.db)
		if err := env.db.Model(cat).Update("is_default", true).Error; err != nil {
			t.Fatalf("failed to mark default: %v", err)
		}
		err := env.categories.DeleteCategory(ctx, actorOf(admin), cat.ID)
		testutil.AssertAppError(t, err, "DEFAULT_CATEGORY")
	})

	t.Run("user_forbidden", func(t *testing.T) {
		cat := testutil.CreateTestCategory(t, env.db)
		err := env.categories.DeleteCategory(ctx, actorOf(user), cat.ID)
		testutil.AssertForbidden(t, err)
	})
}

func TestListCategories_SortedByName(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := testutil.CreateTestUser(t, env.db, models.RoleAdmin)
	for _, name := range []string{"Utilities", "Food", "Rent"} {
		_, err := env.categories.CreateCategory(ctx, actorOf(admin), CreateCategoryInput{Name: name})
		testutil.AssertNoError(t, err)
	}

	categories, err := env.categories.ListCategories(ctx, false)
	testutil.AssertNoError(t, err)

	want := []string{"Food", "Rent", "Utilities"}
	if len(categories) != len(want) {
		t.Fatalf("expected %d categories, got %d", len(want), len(categories))
	}
	for i, c := range categories {
		if c.Name != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], c.Name)
		}
	}
}
