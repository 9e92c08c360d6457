package seeders

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fieldservice/pkg/constants"
	"fieldservice/pkg/utils"
)

// SeedUser описывает учётную запись, создаваемую сидером.
type SeedUser struct {
	Login    string
	Password string
	Name     string
	Phone    string
	Role     constants.Role
	Schedule string
}

// demoUsers - оператор и два инженера для локальной разработки.
var demoUsers = []SeedUser{
	{Login: "operator", Password: "operator", Name: "Ольга Диспетчерова", Phone: "+79001112233", Role: constants.RoleOperator},
	{Login: "engineer1", Password: "engineer1", Name: "Иван Инженеров", Phone: "+79002223344", Role: constants.RoleEngineer, Schedule: "пн-пт 09:00-18:00"},
	{Login: "engineer2", Password: "engineer2", Name: "Пётр Монтёров", Phone: "+79003334455", Role: constants.RoleEngineer, Schedule: "сб-вс 10:00-20:00"},
}

// SeedManager создаёт первого менеджера, если логин ещё свободен.
func SeedManager(ctx context.Context, db *pgxpool.Pool, login, password, name string) error {
	if login == "" || password == "" {
		return fmt.Errorf("для менеджера нужны логин и пароль")
	}
	return seedUser(ctx, db, SeedUser{Login: login, Password: password, Name: name, Role: constants.RoleManager})
}

// SeedDemoUsers создаёт тестовых оператора и инженеров.
func SeedDemoUsers(ctx context.Context, db *pgxpool.Pool) error {
	for _, u := range demoUsers {
		if err := seedUser(ctx, db, u); err != nil {
			return err
		}
	}
	return nil
}

func seedUser(ctx context.Context, db *pgxpool.Pool, u SeedUser) error {
	hash, err := utils.HashPassword(u.Password)
	if err != nil {
		return err
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("не удалось начать транзакцию: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var phone *string
	if u.Phone != "" {
		phone = &u.Phone
	}

	var userID uint64
	err = tx.QueryRow(ctx, `
		INSERT INTO users (role_id, name, login, passw, phone)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (login) DO NOTHING
		RETURNING user_id`,
		int(u.Role), u.Name, u.Login, hash, phone,
	).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		log.Printf("    - Пользователь '%s' уже существует. Пропускаем.", u.Login)
		return nil
	}
	if err != nil {
		return fmt.Errorf("не удалось создать пользователя '%s': %w", u.Login, err)
	}

	if u.Role == constants.RoleEngineer {
		if _, err := tx.Exec(ctx,
			`INSERT INTO engineer_profile (user_id, schedule) VALUES ($1, $2)`,
			userID, u.Schedule,
		); err != nil {
			return fmt.Errorf("не удалось создать профиль инженера '%s': %w", u.Login, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("не удалось зафиксировать транзакцию: %w", err)
	}
	log.Printf("    - Создан пользователь '%s' (%s), ID=%d", u.Login, u.Role, userID)
	return nil
}
