package query

import (
	"strings"
	"testing"
)

func TestWhereSQL(t *testing.T) {
	reg := testRegistry(t)
	b, err := reg.Builder("users")
	if err != nil {
		t.Fatalf("Builder failed: %v", err)
	}

	b.Where("name", "LIKE", "%ann%").Where("age", ">=", 18)

	sql, args, err := b.ToSQL()
	if err != nil {
		t.Fatalf("ToSQL failed: %v", err)
	}
	if !strings.Contains(sql, "name LIKE ?") {
		t.Errorf("expected LIKE predicate, got %q", sql)
	}
	if !strings.Contains(sql, "AND (age >= ?)") {
		t.Errorf("expected AND-ed predicate, got %q", sql)
	}
	if len(args) != 2 || args[0] != "%ann%" || args[1] != 18 {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestOrWhereSQL(t *testing.T) {
	reg := testRegistry(t)
	b, _ := reg.Builder("users")

	b.Where("status", "=", "active").OrWhere("role", "=", "admin")

	sql, args, err := b.ToSQL()
	if err != nil {
		t.Fatalf("ToSQL failed: %v", err)
	}
	if !strings.Contains(sql, "(status = ?) OR (role = ?)") {
		t.Errorf("expected OR grouping, got %q", sql)
	}
	if len(args) != 2 {
		t.Errorf("expected 2 args, got %v", args)
	}
}

func TestWhereInSQL(t *testing.T) {
	reg := testRegistry(t)
	b, _ := reg.Builder("users")

	b.WhereIn("id", 1, 2, 3)

	sql, args, err := b.ToSQL()
	if err != nil {
		t.Fatalf("ToSQL failed: %v", err)
	}
	if !strings.Contains(sql, "id IN (?,?,?)") {
		t.Errorf("expected IN predicate, got %q", sql)
	}
	if len(args) != 3 {
		t.Errorf("expected 3 args, got %v", args)
	}
}

func TestWhereOperatorIn(t *testing.T) {
	// Where with the IN operator normalizes the operand slice.
	reg := testRegistry(t)
	b, _ := reg.Builder("users")

	b.Where("id", "IN", []int{4, 5})

	sql, args, err := b.ToSQL()
	if err != nil {
		t.Fatalf("ToSQL failed: %v", err)
	}
	if !strings.Contains(sql, "id IN (?,?)") {
		t.Errorf("expected IN predicate, got %q", sql)
	}
	if len(args) != 2 {
		t.Errorf("expected 2 args, got %v", args)
	}
}

func TestWhereNullSQL(t *testing.T) {
	reg := testRegistry(t)
	b, _ := reg.Builder("users")

	b.WhereNull("deleted_at")

	sql, _, err := b.ToSQL()
	if err != nil {
		t.Fatalf("ToSQL failed: %v", err)
	}
	if !strings.Contains(sql, "deleted_at IS NULL") {
		t.Errorf("expected IS NULL predicate, got %q", sql)
	}
}

func TestJoinTracking(t *testing.T) {
	reg := testRegistry(t)
	b, _ := reg.Builder("users")

	if n := len(b.JoinedTables()); n != 0 {
		t.Fatalf("expected no joins, got %d", n)
	}

	b.Join("posts", "posts.user_id = users.id")
	b.LeftJoin("companies", "companies.id = users.company_id")

	joined := b.JoinedTables()
	if len(joined) != 2 || joined[0] != "posts" || joined[1] != "companies" {
		t.Errorf("unexpected joined tables: %v", joined)
	}

	sql, _, err := b.ToSQL()
	if err != nil {
		t.Fatalf("ToSQL failed: %v", err)
	}
	if !strings.Contains(sql, "JOIN posts ON posts.user_id = users.id") {
		t.Errorf("expected join clause, got %q", sql)
	}
	if !strings.Contains(sql, "LEFT JOIN companies ON companies.id = users.company_id") {
		t.Errorf("expected left join clause, got %q", sql)
	}
}

func TestWhereHasHasMany(t *testing.T) {
	reg := testRegistry(t)
	b, _ := reg.Builder("users")

	b.WhereHas("posts", func(sub Builder) {
		sub.Where("status", "=", "published")
	})

	sql, args, err := b.ToSQL()
	if err != nil {
		t.Fatalf("ToSQL failed: %v", err)
	}
	if !strings.Contains(sql, "EXISTS (SELECT 1 FROM posts WHERE posts.user_id = users.id AND (status = ?))") {
		t.Errorf("unexpected EXISTS clause: %q", sql)
	}
	if len(args) != 1 || args[0] != "published" {
		t.Errorf("unexpected args: %v", args)
	}
	if n := len(b.JoinedTables()); n != 0 {
		t.Errorf("WhereHas must not join; joined tables: %d", n)
	}
}

func TestWhereHasBelongsTo(t *testing.T) {
	reg := testRegistry(t)
	b, _ := reg.Builder("users")

	b.WhereHas("company", func(sub Builder) {
		sub.Where("name", "=", "acme")
	})

	sql, _, err := b.ToSQL()
	if err != nil {
		t.Fatalf("ToSQL failed: %v", err)
	}
	if !strings.Contains(sql, "EXISTS (SELECT 1 FROM companies WHERE companies.id = users.company_id AND (name = ?))") {
		t.Errorf("unexpected EXISTS clause: %q", sql)
	}
}

func TestWhereHasDottedChain(t *testing.T) {
	reg := testRegistry(t)
	b, _ := reg.Builder("users")

	b.WhereHas("posts.comments", func(sub Builder) {
		sub.Where("body", "LIKE", "%go%")
	})

	sql, args, err := b.ToSQL()
	if err != nil {
		t.Fatalf("ToSQL failed: %v", err)
	}
	outer := "EXISTS (SELECT 1 FROM posts WHERE posts.user_id = users.id AND (EXISTS (SELECT 1 FROM comments WHERE comments.post_id = posts.id AND (body LIKE ?))))"
	if !strings.Contains(sql, outer) {
		t.Errorf("unexpected nested EXISTS clause: %q", sql)
	}
	if len(args) != 1 || args[0] != "%go%" {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestWhereHasUnknownRelationDeferred(t *testing.T) {
	reg := testRegistry(t)
	b, _ := reg.Builder("users")

	b.WhereHas("ghosts", func(sub Builder) {})

	if _, _, err := b.ToSQL(); err == nil {
		t.Fatal("expected deferred relation error from ToSQL")
	}
}

func TestLimitOffsetOrder(t *testing.T) {
	reg := testRegistry(t)
	b, _ := reg.Builder("users")

	b.OrderBy("name ASC").Limit(10).Offset(20)

	sql, _, err := b.ToSQL()
	if err != nil {
		t.Fatalf("ToSQL failed: %v", err)
	}
	if !strings.Contains(sql, "ORDER BY name ASC") {
		t.Errorf("expected order clause, got %q", sql)
	}
	if !strings.Contains(sql, "LIMIT 10") || !strings.Contains(sql, "OFFSET 20") {
		t.Errorf("expected limit/offset, got %q", sql)
	}
}

func TestPaginate(t *testing.T) {
	reg := testRegistry(t)

	tests := []struct {
		name    string
		page    int
		perPage int
		limit   string
		offset  string
	}{
		{"first page", 1, 10, "LIMIT 10", "OFFSET 0"},
		{"third page", 3, 10, "LIMIT 10", "OFFSET 20"},
		{"clamped page", 0, 10, "LIMIT 10", "OFFSET 0"},
		{"default per page", 2, 0, "LIMIT 15", "OFFSET 15"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, _ := reg.Builder("users")
			sql, _, err := Paginate(b, tt.page, tt.perPage).ToSQL()
			if err != nil {
				t.Fatalf("ToSQL failed: %v", err)
			}
			if !strings.Contains(sql, tt.limit) || !strings.Contains(sql, tt.offset) {
				t.Errorf("expected %s %s, got %q", tt.limit, tt.offset, sql)
			}
		})
	}
}

func TestSimplePaginate(t *testing.T) {
	reg := testRegistry(t)
	b, _ := reg.Builder("users")

	sql, _, err := SimplePaginate(b, 2, 10).ToSQL()
	if err != nil {
		t.Fatalf("ToSQL failed: %v", err)
	}
	if !strings.Contains(sql, "LIMIT 11") || !strings.Contains(sql, "OFFSET 10") {
		t.Errorf("expected LIMIT 11 OFFSET 10, got %q", sql)
	}
}
