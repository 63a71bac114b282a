package selection

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadvsk2006/Automated-Resume-Screening/internal/models"
)

func file(name string) models.PendingFile {
	return models.PendingFile{Filename: name, Content: []byte(name)}
}

func TestAddAccumulatesInOrder(t *testing.T) {
	s := NewStore()
	s.Add(file("a.pdf"), file("b.pdf"))
	s.Add(file("a.pdf"))

	files := s.Files()
	require.Len(t, files, 3)
	assert.Equal(t, "a.pdf", files[0].Filename)
	assert.Equal(t, "b.pdf", files[1].Filename)
	assert.Equal(t, "a.pdf", files[2].Filename, "duplicates are kept")
	assert.Equal(t, "3 file(s) selected", s.Summary())
	assert.True(t, s.Armed())
}

func TestAddNothingIsNoop(t *testing.T) {
	s := NewStore()
	called := false
	s.OnChange(func(int) { called = true })

	s.Add()

	assert.False(t, called)
	assert.False(t, s.Armed())
}

func TestOnChangeReportsCount(t *testing.T) {
	s := NewStore()
	var counts []int
	s.OnChange(func(n int) { counts = append(counts, n) })

	s.Add(file("a.pdf"))
	s.Add(file("b.pdf"), file("c.pdf"))
	require.NoError(t, s.Remove(0))
	s.Clear()

	assert.Equal(t, []int{1, 3, 2, 0}, counts)
}

func TestRemove(t *testing.T) {
	s := NewStore()
	s.Add(file("a.pdf"), file("b.pdf"), file("c.pdf"))

	require.NoError(t, s.Remove(1))
	files := s.Files()
	require.Len(t, files, 2)
	assert.Equal(t, "a.pdf", files[0].Filename)
	assert.Equal(t, "c.pdf", files[1].Filename)

	assert.Error(t, s.Remove(5))
	assert.Error(t, s.Remove(-1))
}

func TestFilesReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Add(file("a.pdf"))

	files := s.Files()
	files[0].Filename = "changed.pdf"

	assert.Equal(t, "a.pdf", s.Files()[0].Filename)
}

func TestConcurrentAdds(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Add(file("x.pdf"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, s.Count())
}
