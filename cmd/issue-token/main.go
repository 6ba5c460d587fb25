// issue-token 为本地开发签发 Access Token
//
//	go run ./cmd/issue-token -user u-1 -name "Ms. Rivera" -role planner -ttl 24h
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"pacing-calendar/backend/config"
	"pacing-calendar/backend/pkg/jwt"
)

func main() {
	var (
		userID  = flag.String("user", "", "用户 ID（必填）")
		name    = flag.String("name", "", "显示名称")
		role    = flag.String("role", jwt.RolePlanner, "角色：viewer / planner / admin")
		ttl     = flag.Duration("ttl", 0, "有效期，0 表示使用 auth.access_token_ttl")
		cfgPath = flag.String("config", os.Getenv("PACING_CONFIG"), "配置文件路径")
	)
	flag.Parse()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "缺少 -user 参数")
		flag.Usage()
		os.Exit(2)
	}
	if !jwt.ValidRole(*role) {
		fmt.Fprintf(os.Stderr, "未知角色 %q\n", *role)
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	token, err := jwt.NewManager(&cfg.Auth).GenerateAccessToken(*userID, *name, *role, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "签发失败: %v\n", err)
		os.Exit(1)
	}

	expires := *ttl
	if expires <= 0 {
		expires = cfg.Auth.AccessTokenTTL
	}
	fmt.Fprintf(os.Stderr, "user=%s role=%s expires=%s\n", *userID, *role, time.Now().Add(expires).Format(time.RFC3339))
	fmt.Println(token)
}
