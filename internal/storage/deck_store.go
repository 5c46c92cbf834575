// internal/storage/deck_store.go
package storage

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Corphon/SlideCrafter/internal/models"
)

const decksDir = "decks"

// DeckStore 把演示文稿持久化为 data/decks/<id>.json
type DeckStore struct {
	files *FileStorage
}

// NewDeckStore 创建演示文稿存储
func NewDeckStore(files *FileStorage) *DeckStore {
	return &DeckStore{files: files}
}

func deckFile(id string) string {
	return id + ".json"
}

// Save 保存演示文稿
func (s *DeckStore) Save(deck *models.Deck) error {
	if deck == nil || deck.ID == "" {
		return fmt.Errorf("演示文稿ID为空")
	}
	return s.files.SaveJSONFile(decksDir, deckFile(deck.ID), deck)
}

// Load 读取演示文稿，不存在时返回 ErrFileNotFound
func (s *DeckStore) Load(id string) (*models.Deck, error) {
	var deck models.Deck
	if err := s.files.LoadJSONFile(decksDir, deckFile(id), &deck); err != nil {
		return nil, err
	}
	return &deck, nil
}

// Delete 删除演示文稿
func (s *DeckStore) Delete(id string) error {
	return s.files.DeleteFile(decksDir, deckFile(id))
}

// LoadAll 读取所有演示文稿，按更新时间倒序。损坏的文件会被跳过并返回在 skipped 中。
func (s *DeckStore) LoadAll() (decks []*models.Deck, skipped []string, err error) {
	names, err := s.files.ListFiles(decksDir, ".json")
	if err != nil {
		return nil, nil, err
	}

	for _, name := range names {
		deck, err := s.Load(strings.TrimSuffix(name, ".json"))
		if err != nil {
			if errors.Is(err, ErrFileNotFound) {
				continue
			}
			skipped = append(skipped, name)
			continue
		}
		decks = append(decks, deck)
	}

	sort.Slice(decks, func(i, j int) bool {
		return decks[i].UpdatedAt.After(decks[j].UpdatedAt)
	})
	return decks, skipped, nil
}
