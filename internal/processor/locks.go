package processor

import (
	"context"
	"sync"
)

// lockTable хранит кооперативные single-holder локи по transactionID
// Поиск-или-создание атомарны; захват учитывает отмену контекста.
// Глобального лока нет: разные транзакции выполняются полностью параллельно
type lockTable struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

// lockEntry — лок одной транзакции
// Захват — отправка в буферизованный канал ёмкости 1.
// refs считает держателей и ожидающих: запись с refs > 0 нельзя удалять
type lockEntry struct {
	ch   chan struct{}
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{entries: make(map[string]*lockEntry)}
}

// acquire захватывает лок для id, создавая его при первом обращении
// Блокируется до захвата или отмены контекста; возвращает функцию освобождения
func (t *lockTable) acquire(ctx context.Context, id string) (func(), error) {
	t.mu.Lock()
	entry, ok := t.entries[id]
	if !ok {
		entry = &lockEntry{ch: make(chan struct{}, 1)}
		t.entries[id] = entry
	}
	entry.refs++
	t.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
		return func() {
			<-entry.ch
			t.mu.Lock()
			entry.refs--
			t.mu.Unlock()
		}, nil
	case <-ctx.Done():
		t.mu.Lock()
		entry.refs--
		t.mu.Unlock()
		return nil, ctx.Err()
	}
}

// removeIfIdle удаляет лок id, если он не захвачен и никто его не ждёт
// Вызывается из Cleanup для терминальных транзакций
func (t *lockTable) removeIfIdle(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[id]
	if !ok {
		return false
	}
	if entry.refs > 0 {
		return false
	}
	delete(t.entries, id)
	return true
}

// size возвращает количество живых локов (для тестов и метрик)
func (t *lockTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
