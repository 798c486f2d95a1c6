package dtos

import (
	"fmt"
	"strconv"

	"querydesk/internal/models"
)

// CreateDataSourceRequest is the server-side shape of a data source.
// Client code keeps the port as a decimal string; the wire format wants
// an integer, so the mapping parses it here.
type CreateDataSourceRequest struct {
	Name             string                   `json:"name" binding:"required"`
	DatabaseType     string                   `json:"database_type" binding:"required,oneof=POSTGRESQL MYSQL ORACLE"`
	Host             string                   `json:"host" binding:"required"`
	Port             int                      `json:"port"`
	DatabaseName     string                   `json:"database_name" binding:"required"`
	Username         string                   `json:"username"`
	Password         string                   `json:"password"`
	TableDefinitions []models.TableDefinition `json:"table_definitions"`
}

// NewCreateDataSourceRequest maps client field values to the server
// shape. Absent optional fields default to an empty string or sequence.
func NewCreateDataSourceRequest(source models.DataSource) (CreateDataSourceRequest, error) {
	req := CreateDataSourceRequest{
		Name:             source.Name,
		DatabaseType:     source.DatabaseType,
		Host:             source.Host,
		DatabaseName:     source.DatabaseName,
		Username:         source.Username,
		Password:         source.Password,
		TableDefinitions: source.TableDefinitions,
	}
	if req.TableDefinitions == nil {
		req.TableDefinitions = []models.TableDefinition{}
	}
	if source.Port != "" {
		port, err := strconv.Atoi(source.Port)
		if err != nil {
			return CreateDataSourceRequest{}, fmt.Errorf("invalid port %q: %w", source.Port, err)
		}
		req.Port = port
	}
	return req, nil
}

type UpdateDataSourceRequest = CreateDataSourceRequest

type AddOwnerRequest struct {
	Username string `json:"username" binding:"required"`
}
