package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"net/mail"
	"os"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"cvbuilder/internal/auth"
	"cvbuilder/internal/config"
	"cvbuilder/internal/database"
)

const oneTimePasswordLen = 20

func main() {
	var (
		email   = flag.String("email", "", "账号邮箱（必填）")
		name    = flag.String("name", "", "显示名称（可选）")
		plan    = flag.String("plan", database.PlanFree, "套餐：free 或 pro")
		reset   = flag.Bool("reset", false, "账号已存在时重置密码并更新套餐")
		dbHost  = flag.String("db-host", "", "数据库 Host（默认读 DATABASE_HOST）")
		dbPort  = flag.Int("db-port", 0, "数据库 Port（默认读 DATABASE_PORT）")
		dbName  = flag.String("db-name", "", "数据库名（默认读 POSTGRES_DB）")
		dbUser  = flag.String("db-user", "", "数据库用户（默认读 POSTGRES_USER）")
		dbPass  = flag.String("db-password", "", "数据库密码（默认读 POSTGRES_PASSWORD）")
		sslMode = flag.String("db-sslmode", "", "数据库 SSLMODE（默认读 DATABASE_SSLMODE）")
	)
	flag.Parse()

	addr := strings.ToLower(strings.TrimSpace(*email))
	if addr == "" {
		log.Fatal("missing required flag: --email")
	}
	if _, err := mail.ParseAddress(addr); err != nil {
		log.Fatalf("invalid --email %q: %v", addr, err)
	}
	p := strings.ToLower(strings.TrimSpace(*plan))
	if p != database.PlanFree && p != database.PlanPro {
		log.Fatalf("invalid --plan %q (free|pro)", *plan)
	}

	dbCfg, err := loadDatabaseConfig(*dbHost, *dbPort, *dbName, *dbUser, *dbPass, *sslMode)
	if err != nil {
		log.Fatalf("load database config: %v", err)
	}

	db, err := database.InitDatabase(dbCfg, nil)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}

	password, err := auth.GenerateOneTimePassword(oneTimePasswordLen)
	if err != nil {
		log.Fatalf("generate password: %v", err)
	}
	hashed, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	var existing database.User
	err = db.Where("email = ?", addr).First(&existing).Error
	switch {
	case err == nil && !*reset:
		log.Fatalf("user %q already exists (use --reset to issue a new password)", addr)
	case err == nil:
		if err := db.Model(&existing).Updates(map[string]any{
			"password_hash":        hashed,
			"plan":                 p,
			"must_change_password": true,
		}).Error; err != nil {
			log.Fatalf("reset user: %v", err)
		}
		printCredentials("已重置账号密码（下次登录需强制改密）：", addr, p, password)
	case errors.Is(err, gorm.ErrRecordNotFound):
		user := database.User{
			Email:              addr,
			Name:               strings.TrimSpace(*name),
			PasswordHash:       hashed,
			Plan:               p,
			MustChangePassword: true,
		}
		if err := db.Create(&user).Error; err != nil {
			log.Fatalf("create user: %v", err)
		}
		printCredentials("已创建账号（首次登录需强制改密）：", addr, p, password)
	default:
		log.Fatalf("query user: %v", err)
	}
}

func printCredentials(title, email, plan, password string) {
	fmt.Println(title)
	fmt.Printf("邮箱: %s\n", email)
	fmt.Printf("套餐: %s\n", plan)
	fmt.Printf("初始密码: %s\n", password)
	fmt.Println("提示：该密码仅显示一次。")
}

// loadDatabaseConfig 合并命令行参数与环境变量，命令行优先。
func loadDatabaseConfig(host string, port int, name, user, password, sslmode string) (config.DatabaseConfig, error) {
	if port <= 0 {
		if env := strings.TrimSpace(os.Getenv("DATABASE_PORT")); env != "" {
			p, err := strconv.Atoi(env)
			if err != nil {
				return config.DatabaseConfig{}, fmt.Errorf("parse DATABASE_PORT: %w", err)
			}
			port = p
		}
	}
	if port <= 0 {
		port = 5432
	}

	cfg := config.DatabaseConfig{
		Host:     firstNonEmpty(host, os.Getenv("DATABASE_HOST"), "localhost"),
		Port:     port,
		Name:     firstNonEmpty(name, os.Getenv("POSTGRES_DB")),
		User:     firstNonEmpty(user, os.Getenv("POSTGRES_USER")),
		Password: firstNonEmpty(password, os.Getenv("POSTGRES_PASSWORD")),
		SSLMode:  firstNonEmpty(sslmode, os.Getenv("DATABASE_SSLMODE"), "disable"),
	}
	switch {
	case cfg.Name == "":
		return cfg, errors.New("database name is required (POSTGRES_DB)")
	case cfg.User == "":
		return cfg, errors.New("database user is required (POSTGRES_USER)")
	case cfg.Password == "":
		return cfg, errors.New("database password is required (POSTGRES_PASSWORD)")
	}
	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
