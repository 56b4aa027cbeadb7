package wire_test

import (
	"testing"

	"github.com/crabritto/arbor/internal/wire"
	"github.com/crabritto/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestProject(t *testing.T) {
	tree := domain.NewTree()
	resp := &domain.AnalysisResponse{
		PreOrder:  domain.Labels{8, 3, 10},
		PostOrder: domain.Labels{3, 10, 8},
		InOrder:   domain.Labels{3, 8, 10},
		Height:    "A altura é 1",
		Type:      " Arvore binaria ",
		TreeType:  "O tipo é Arvore cheia",
		Image:     `C:\srv\static\images\bin_tree.png`,
	}

	dm := wire.Project(resp, tree, wire.DisplayOptions{StaticBaseURL: "http://localhost:5000/static/images/"})

	assert.Equal(t, []int{8, 3, 10}, dm.PreOrder)
	assert.Equal(t, []int{3, 8, 10}, dm.InOrder)
	assert.Equal(t, []int{3, 10, 8}, dm.PostOrder)
	assert.Equal(t, "1", dm.Height)
	assert.Equal(t, "Arvore binaria", dm.Classification)
	assert.Equal(t, "Arvore cheia", dm.Structure)
	assert.Equal(t, "http://localhost:5000/static/images/bin_tree.png", dm.ImageURL)
	assert.Same(t, tree, dm.Tree)
}

func TestProject_OptionalFields(t *testing.T) {
	resp := &domain.AnalysisResponse{
		Height:   "height: 4",
		TreeType: "no delimiter here",
	}

	dm := wire.Project(resp, domain.NewTree(), wire.DisplayOptions{Delimiter: ":"})

	assert.Nil(t, dm.InOrder, "in-order is only shown when the service sends it")
	assert.Equal(t, []int{}, dm.PreOrder)
	assert.Equal(t, []int{}, dm.PostOrder)
	assert.Equal(t, "4", dm.Height)
	assert.Equal(t, "no delimiter here", dm.Structure)
	assert.Empty(t, dm.ImageURL)
}

func TestImageURL(t *testing.T) {
	tests := []struct {
		path, base, want string
	}{
		{"/srv/static/images/nary_tree.png", "http://h/static/images", "http://h/static/images/nary_tree.png"},
		{`images\bin tree.png`, "http://h/", "http://h/bin%20tree.png"},
		{"plain.png", "", "plain.png"},
		{"/dir/", "http://h", ""},
		{"", "http://h", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, wire.ImageURL(tt.path, tt.base), tt.path)
	}
}
