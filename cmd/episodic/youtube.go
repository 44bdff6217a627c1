package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dukex/episodic/pkg/cmd"
	"github.com/dukex/episodic/pkg/config"
	"github.com/dukex/episodic/pkg/publishers/youtube"
	"github.com/dukex/episodic/pkg/services"
	cli "github.com/urfave/cli/v3"
)

var errMissingCode = errors.New("authorization code is required")

func youtubeAuthCommand() *cli.Command {
	return &cli.Command{
		Name:  "youtube-auth",
		Usage: "Authorize the YouTube channel and print a refresh token",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "code",
				Usage: "Authorization code from the consent page (prompted when empty)",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			cfg, err := config.FromCommand(command)
			if err != nil {
				return err
			}

			authURL, err := youtube.AuthURL(cfg.YouTube)
			if err != nil {
				return err
			}

			code := command.String("code")
			if code == "" {
				fmt.Println("Open this URL in your browser and authorize the channel:")
				fmt.Println()
				fmt.Println(authURL)
				fmt.Println()
				fmt.Print("Authorization code: ")

				line, err := bufio.NewReader(os.Stdin).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("failed to read authorization code: %w", err)
				}

				code = strings.TrimSpace(line)
			}

			if code == "" {
				return errMissingCode
			}

			token, err := youtube.Exchange(ctx, cfg.YouTube, code)
			if err != nil {
				return err
			}

			if token.RefreshToken == "" {
				return cli.Exit("No refresh token returned; revoke the app access and authorize again", 1)
			}

			fmt.Println()
			fmt.Println("Add this line to your .env file:")
			fmt.Printf("YOUTUBE_REFRESH_TOKEN=%s\n", token.RefreshToken)

			return nil
		},
	}
}

func uploadTestCommand() *cli.Command {
	return &cli.Command{
		Name:      "upload-test",
		Usage:     "Upload a local video to check the YouTube credentials",
		ArgsUsage: "<video-path>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "title",
				Value: "테스트 영상",
			},
			&cli.StringFlag{
				Name:  "description",
				Value: "YouTube 업로드 테스트입니다.",
			},
			&cli.BoolFlag{
				Name:  "private",
				Usage: "Upload as private video",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			videoPath := command.Args().First()
			if videoPath == "" {
				return cli.Exit("video path is required", 1)
			}

			env, err := open(ctx, command, false)
			if err != nil {
				return err
			}
			defer env.close(ctx)

			publisher, err := cmd.NewPublisher(ctx, env.logger, env.config)
			if err != nil {
				return err
			}

			project := services.NewProject(env.logger, services.ProjectDependencies{
				Config:      env.config,
				Persistence: env.store,
				History:     env.store.History,
				Publisher:   publisher,
			})

			return printResult(os.Stdout, "upload-test", project.UploadTest(ctx, services.UploadTestRequest{
				VideoPath:   videoPath,
				Title:       command.String("title"),
				Description: command.String("description"),
				Private:     command.Bool("private"),
			}))
		},
	}
}
