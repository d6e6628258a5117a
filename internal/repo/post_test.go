package repo

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/crucial707/blog/internal/models"
)

var postRowColumns = []string{"id", "title", "content", "image", "user_id", "username", "created_at"}

func expectPostByID(mock sqlmock.Sqlmock, id int, title string, tags ...string) {
	mock.ExpectQuery(`SELECT p.id, p.title, p.content, COALESCE\(p.image, ''\), p.user_id, u.username, p.created_at FROM posts p JOIN users u ON u.id = p.user_id WHERE p.id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(postRowColumns).
			AddRow(id, title, "body", "", 1, "alice", time.Now()))
	rows := sqlmock.NewRows([]string{"post_id", "name"})
	for _, tag := range tags {
		rows.AddRow(id, tag)
	}
	mock.ExpectQuery(`SELECT pt.post_id, t.name FROM post_tags pt JOIN tags t`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(rows)
}

func TestPostRepo_Create_DedupesTags(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO posts \(title, content, image, user_id\)`).
		WithArgs("hello", "body", nil, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	for i, name := range []string{"a", "b"} {
		mock.ExpectQuery(`INSERT INTO tags \(name\) VALUES \(\$1\) ON CONFLICT \(name\)`).
			WithArgs(name).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(i + 1))
		mock.ExpectExec(`INSERT INTO post_tags \(post_id, tag_id\)`).
			WithArgs(7, i+1).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()
	expectPostByID(mock, 7, "hello", "a", "b")

	repo := NewPostRepo(db)
	post, err := repo.Create(context.Background(), &models.Post{Title: "hello", Content: "body", OwnerID: 1}, []string{"a", "b", "a"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if post.ID != 7 || post.OwnerUsername != "alice" || len(post.Tags) != 2 {
		t.Errorf("unexpected post: %+v", post)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestPostRepo_Create_RollsBackOnTagFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO posts`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(`INSERT INTO tags`).
		WithArgs("a").
		WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	repo := NewPostRepo(db)
	_, err = repo.Create(context.Background(), &models.Post{Title: "t", Content: "c", OwnerID: 1}, []string{"a"})
	if err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestPostRepo_GetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT p.id, p.title`).
		WithArgs(999).
		WillReturnError(sql.ErrNoRows)

	repo := NewPostRepo(db)
	_, err = repo.GetByID(context.Background(), 999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestPostRepo_Update_ReplacesTags(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE posts SET title = \$1, content = \$2, image = \$3 WHERE id = \$4`).
		WithArgs("new", "body", "x.png", 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM post_tags WHERE post_id = \$1`).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(`INSERT INTO tags`).
		WithArgs("c").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectExec(`INSERT INTO post_tags`).
		WithArgs(7, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	expectPostByID(mock, 7, "new", "c")

	repo := NewPostRepo(db)
	post, err := repo.Update(context.Background(), &models.Post{ID: 7, Title: "new", Content: "body", Image: "x.png"}, []string{"c"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(post.Tags) != 1 || post.Tags[0] != "c" {
		t.Errorf("unexpected tags: %v", post.Tags)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestPostRepo_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM post_tags WHERE post_id = \$1`).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM posts WHERE id = \$1`).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewPostRepo(db)
	if err := repo.Delete(context.Background(), 7); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestPostRepo_Delete_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM post_tags`).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM posts`).
		WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	repo := NewPostRepo(db)
	if err := repo.Delete(context.Background(), 7); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestPostRepo_List_QueryAndTag(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`WHERE \(p.title ILIKE \$1 OR p.content ILIKE \$1 OR u.username ILIKE \$1\) AND EXISTS \(.*t.name = \$2\) ORDER BY p.created_at DESC, p.id DESC`).
		WithArgs(`%50\%\_off%`, "x").
		WillReturnRows(sqlmock.NewRows(postRowColumns).
			AddRow(2, "50% sale", "body", "", 1, "alice", now))
	mock.ExpectQuery(`SELECT pt.post_id, t.name`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"post_id", "name"}).AddRow(2, "x"))

	repo := NewPostRepo(db)
	posts, err := repo.List(context.Background(), PostFilter{Query: "50%_off", Tag: "x"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(posts) != 1 || posts[0].Tags[0] != "x" {
		t.Errorf("unexpected posts: %+v", posts)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestPostRepo_List_NoFilter(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`FROM posts p JOIN users u ON u.id = p.user_id ORDER BY`).
		WillReturnRows(sqlmock.NewRows(postRowColumns))

	repo := NewPostRepo(db)
	posts, err := repo.List(context.Background(), PostFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if posts == nil || len(posts) != 0 {
		t.Errorf("expected empty non-nil list, got %+v", posts)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike(`a%b_c\d`); got != `a\%b\_c\\d` {
		t.Errorf("escapeLike: got %q", got)
	}
}
