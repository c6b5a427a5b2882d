package github

import "time"

// Wire shapes for the REST payload fields we map; everything else is ignored

type actor struct {
	Login string `json:"login"`
}

type issueItem struct {
	ID          int64     `json:"id"`
	Number      int       `json:"number"`
	CreatedAt   time.Time `json:"created_at"`
	User        *actor    `json:"user"`
	PullRequest *struct{} `json:"pull_request"`
}

type commitItem struct {
	SHA       string `json:"sha"`
	Author    *actor `json:"author"`
	Committer *actor `json:"committer"`
	Commit    struct {
		Author struct {
			Date time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
	Stats *struct {
		Additions int64 `json:"additions"`
		Deletions int64 `json:"deletions"`
	} `json:"stats"`
}

type pullItem struct {
	Number int `json:"number"`
}

type reviewItem struct {
	ID          int64      `json:"id"`
	User        *actor     `json:"user"`
	SubmittedAt *time.Time `json:"submitted_at"`
	CreatedAt   *time.Time `json:"created_at"`
}

type repoItem struct {
	FullName string `json:"full_name"`
}

// GraphQL wire shapes

type gqlResponse struct {
	Data struct {
		Search struct {
			PageInfo struct {
				HasNextPage bool   `json:"hasNextPage"`
				EndCursor   string `json:"endCursor"`
			} `json:"pageInfo"`
			Nodes []gqlNode `json:"nodes"`
		} `json:"search"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type gqlNode struct {
	Typename   string `json:"__typename"`
	ID         string `json:"id"`
	Number     int    `json:"number"`
	Repository struct {
		NameWithOwner string `json:"nameWithOwner"`
	} `json:"repository"`
	Author    *actor     `json:"author"`
	CreatedAt *time.Time `json:"createdAt"`
}
