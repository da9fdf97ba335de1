package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/usercore/backend/internal/model"
)

func (db *Postgres) CreateRole(ctx context.Context, role *model.Role) (*model.Role, error) {
	query := `
		INSERT INTO roles (id, name, description)
		VALUES ($1, $2, $3)
		RETURNING id, name, description
	`
	var out model.Role
	err := db.Pool.QueryRow(ctx, query, role.ID, role.Name, role.Description).Scan(
		&out.ID,
		&out.Name,
		&out.Description,
	)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (db *Postgres) GetRoleByName(ctx context.Context, name string) (*model.Role, error) {
	query := `SELECT id, name, description FROM roles WHERE name = $1`
	var role model.Role
	err := db.Pool.QueryRow(ctx, query, name).Scan(&role.ID, &role.Name, &role.Description)
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (db *Postgres) GetRoleByID(ctx context.Context, roleID uuid.UUID) (*model.Role, error) {
	query := `SELECT id, name, description FROM roles WHERE id = $1`
	var role model.Role
	err := db.Pool.QueryRow(ctx, query, roleID).Scan(&role.ID, &role.Name, &role.Description)
	if err != nil {
		return nil, err
	}
	return &role, nil
}
