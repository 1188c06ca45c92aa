package model

import "time"

// Project — изолированное пространство имён (тенант).
// Аутентифицируется секретным API-ключом; ключ ротируется атомарно,
// проект никогда не удаляется.
type Project struct {
	// Name — уникальное имя проекта (первичный ключ)
	Name string `json:"name"`
	// APIKey — секретный ключ доступа (hex, 32 символа)
	APIKey string `json:"api_key"`
	// CreatedAt — момент создания проекта
	CreatedAt time.Time `json:"created_at"`
}
