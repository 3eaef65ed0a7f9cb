package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/ovenfresh/bakeshop/internal/auth"
	"github.com/ovenfresh/bakeshop/internal/cart"
	"github.com/ovenfresh/bakeshop/internal/config"
	"github.com/ovenfresh/bakeshop/internal/logging"
	"github.com/ovenfresh/bakeshop/internal/models"
	"github.com/ovenfresh/bakeshop/internal/roles"
	"github.com/ovenfresh/bakeshop/internal/session"
)

// The kiosk is an in-store terminal: one operator, one session. It is the
// composition root for the client-state stores. The session store and the
// cart store are constructed once here and the cart's dependency on the
// session is injected explicitly.
func main() {
	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	authService := auth.NewService(
		db,
		[]byte(configuration.JWT_SECRET),
		[]byte(configuration.REFRESH_SECRET),
		nil,
		logger,
	)
	resolver := roles.NewResolver(db)

	sess := session.New(authService, resolver, logger)
	defer sess.Close()

	store := cart.NewStore(sess, cart.NewRepo(db), nil, logger)
	defer store.Close()

	var refreshToken string

	fmt.Println("bakeshop kiosk - type 'help' for commands")
	sc := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !sc.Scan() {
			break
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		ctx := context.Background()

		switch fields[0] {
		case "help":
			fmt.Println("products | signin <user> <pass> | signout | whoami")
			fmt.Println("add <product_id> | qty <product_id> <n> | rm <product_id> | clear | cart | quit")
		case "products":
			var products []models.Product
			if err := db.Order("id ASC").Limit(20).Find(&products).Error; err != nil {
				fmt.Println("error:", err)
				continue
			}
			for _, p := range products {
				fmt.Printf("%4d  %-30s %8.2f\n", p.ID, p.Name, p.Price)
			}
		case "signin":
			if len(fields) != 3 {
				fmt.Println("usage: signin <user> <pass>")
				continue
			}
			_, pair, err := authService.Login(ctx, fields[1], fields[2])
			if err != nil {
				fmt.Println("sign-in failed:", err)
				continue
			}
			refreshToken = pair.Refresh
			st := sess.State()
			fmt.Printf("signed in as %s (role %q)\n", st.Identity.Username, st.Role)
		case "signout":
			if err := sess.SignOut(ctx, refreshToken); err != nil {
				fmt.Println("sign-out failed:", err)
				continue
			}
			refreshToken = ""
			fmt.Println("signed out")
		case "whoami":
			st := sess.State()
			if st.Identity == nil {
				fmt.Println("guest")
			} else {
				fmt.Printf("%s (role %q)\n", st.Identity.Username, st.Role)
			}
		case "add":
			if len(fields) != 2 {
				fmt.Println("usage: add <product_id>")
				continue
			}
			id, _ := strconv.Atoi(fields[1])
			var p models.Product
			if err := db.First(&p, id).Error; err != nil {
				fmt.Println("no such product")
				continue
			}
			if err := store.AddItem(ctx, p); err != nil {
				fmt.Println("error:", err)
			}
		case "qty":
			if len(fields) != 3 {
				fmt.Println("usage: qty <product_id> <n>")
				continue
			}
			id, _ := strconv.Atoi(fields[1])
			n, _ := strconv.Atoi(fields[2])
			if err := store.UpdateQuantity(ctx, uint(id), n); err != nil {
				fmt.Println("error:", err)
			}
		case "rm":
			if len(fields) != 2 {
				fmt.Println("usage: rm <product_id>")
				continue
			}
			id, _ := strconv.Atoi(fields[1])
			if err := store.RemoveItem(ctx, uint(id)); err != nil {
				fmt.Println("error:", err)
			}
		case "clear":
			if err := store.Clear(ctx); err != nil {
				fmt.Println("error:", err)
			}
		case "cart":
			for _, l := range store.Items() {
				fmt.Printf("%4d  %-30s %3d × %8.2f\n", l.ProductID, l.Name, l.Quantity, l.UnitPrice)
			}
			fmt.Printf("total: %.2f\n", store.Total())
		case "quit", "exit":
			return
		default:
			fmt.Println("unknown command, try 'help'")
		}
	}
}
