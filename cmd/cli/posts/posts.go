package posts

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/crucial707/blog/cmd/cli/client"
	"github.com/crucial707/blog/cmd/cli/output"
	"github.com/crucial707/blog/internal/models"
	"github.com/spf13/cobra"
)

// ==========================
// Init Posts
// ==========================
func InitPosts(rootCmd *cobra.Command) {
	postsCmd := &cobra.Command{
		Use:   "posts",
		Short: "Read and write posts",
	}

	postsCmd.AddCommand(
		listPostsCmd(),
		getPostCmd(),
		createPostCmd(),
		deletePostCmd(),
	)

	rootCmd.AddCommand(postsCmd, tagsCmd())
}

func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid post id %q", arg)
	}
	return id, nil
}

// ==========================
// LIST
// ==========================
func listPostsCmd() *cobra.Command {
	var query, tag string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List posts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			if query != "" {
				params.Set("query", query)
			}
			if tag != "" {
				params.Set("tag", tag)
			}
			path := "/"
			if len(params) > 0 {
				path += "?" + params.Encode()
			}

			var result struct {
				Posts []models.Post `json:"posts"`
			}
			if err := client.JSON(http.MethodGet, path, nil, &result); err != nil {
				return err
			}

			if asJSON {
				return output.RenderJSON(result.Posts)
			}

			rows := make([][]interface{}, 0, len(result.Posts))
			for _, p := range result.Posts {
				rows = append(rows, []interface{}{
					p.ID, p.Title, p.OwnerUsername, strings.Join(p.Tags, ", "), p.CreatedAt.Format(time.DateTime),
				})
			}
			output.RenderTable([]string{"ID", "Title", "Author", "Tags", "Created"}, rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&query, "query", "", "Search title, content and author")
	cmd.Flags().StringVar(&tag, "tag", "", "Only posts with this exact tag")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

// ==========================
// GET
// ==========================
func getPostCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show one post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var result struct {
				Post models.Post `json:"post"`
			}
			if err := client.JSON(http.MethodGet, "/post/"+strconv.Itoa(id), nil, &result); err != nil {
				return err
			}
			return output.RenderJSON(result.Post)
		},
	}
}

// ==========================
// CREATE
// ==========================
func createPostCmd() *cobra.Command {
	var title, content, tags, image string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a post (requires login)",
		RunE: func(cmd *cobra.Command, args []string) error {
			var post models.Post
			err := client.Multipart(http.MethodPost, "/post/new", map[string]string{
				"title":   title,
				"content": content,
				"tags":    tags,
			}, image, &post)
			if err != nil {
				return err
			}

			fmt.Printf("Post %d created.\n", post.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Post title")
	cmd.Flags().StringVar(&content, "content", "", "Post content")
	cmd.Flags().StringVar(&tags, "tags", "", "Comma-separated tags")
	cmd.Flags().StringVar(&image, "image", "", "Path to a png, jpg, jpeg or gif image")
	cmd.MarkFlagRequired("title")
	cmd.MarkFlagRequired("content")
	return cmd
}

// ==========================
// DELETE
// ==========================
func deletePostCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete one of your posts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var result struct {
				Success bool   `json:"success"`
				Message string `json:"message"`
			}
			if err := client.JSON(http.MethodDelete, "/post/"+strconv.Itoa(id)+"/delete", nil, &result); err != nil {
				return err
			}
			fmt.Println(result.Message)
			return nil
		},
	}
}

// ==========================
// TAGS
// ==========================
func tagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List tags with post counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			var tags []models.Tag
			if err := client.JSON(http.MethodGet, "/tags", nil, &tags); err != nil {
				return err
			}

			rows := make([][]interface{}, 0, len(tags))
			for _, t := range tags {
				rows = append(rows, []interface{}{t.Name, t.PostCount})
			}
			output.RenderTable([]string{"Tag", "Posts"}, rows)
			return nil
		},
	}
}
