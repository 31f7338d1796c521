package model

// Config holds the runtime settings read from the JSON config file.
type Config struct {
	DatabaseType        string `json:"database_type" validate:"oneof=sqlite"`
	DatabaseDir         string `json:"database_dir" validate:"required"`
	DatabaseFile        string `json:"database_file" validate:"required"`
	LogFolder           string `json:"log_folder" validate:"required"`
	LogLevel            string `json:"log_level" validate:"omitempty,oneof=debug info warn error"`
	CommandLog          string `json:"command_log" validate:"required"`
	ErrorLog            string `json:"error_log" validate:"required"`
	InfoLog             string `json:"info_log" validate:"required"`
	HistoryFile         string `json:"history_file"`
	HTTPAddr            string `json:"http_addr"`
	MetricsEnabled      bool   `json:"metrics_enabled"`
	DefaultUser         string `json:"default_user"`
	DefaultUserActive   bool   `json:"default_user_active"`
	DefaultUserPassword string `json:"default_user_password"`
}
